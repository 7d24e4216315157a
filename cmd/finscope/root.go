package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finscope",
	Short: "Multi-agent financial research orchestration",
	Long: `Finscope turns a research goal into a reviewed, step-by-step plan and
runs each step through a specialist financial agent.

A planner decomposes the goal into steps (company profile, earnings calls,
fundamentals, technicals, SEC filings, forecast), every step waits for human
approval, and approved steps execute one at a time so later agents can build
on earlier results. Feedback can revise a step's action before it runs.

Core capabilities:
- Decomposes research goals into agent-addressed steps
- Gates every step behind human approval (TUI, CLI, or file drop)
- Executes steps through assistant definitions cached per session
- Records every agent result in a reviewable message log
- Persists plans so an interrupted run can be picked up again`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env files are a dev convenience; absence is not an error.
		_ = godotenv.Load()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

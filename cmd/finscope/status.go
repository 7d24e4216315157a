package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kpenrose/finscope/internal/config"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/models"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status [plan-id]",
	Short: "Show plans and their step progress",
	Long: `Display recorded research plans.

Without arguments, lists recent plans across all sessions.
With a plan ID, shows the plan's steps and recorded agent messages.

Use --format json or --format yaml for machine-readable output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "Output format: table, json, or yaml")
}

// planDetail is the machine-output shape for a single plan.
type planDetail struct {
	*models.PlanWithSteps
	Messages []*models.AgentMessage `json:"messages,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFormat != "table" && statusFormat != "json" && statusFormat != "yaml" {
		return fmt.Errorf("unknown format %q: must be table, json, or yaml", statusFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		fmt.Println("No plans recorded. Run 'finscope run \"<goal>\"' to start.")
		return nil
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	if len(args) == 0 {
		return listPlansStatus(db)
	}
	return showPlanStatus(db, args[0])
}

// listPlansStatus prints one line per recorded plan.
func listPlansStatus(db *store.DB) error {
	plans, err := db.ListPlans("")
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}

	if len(plans) == 0 {
		fmt.Println("No plans recorded. Run 'finscope run \"<goal>\"' to start.")
		return nil
	}

	if statusFormat != "table" {
		return printMachine(plans)
	}

	fmt.Println("Recent Plans:")
	for _, p := range plans {
		pws, err := db.GetPlanWithSteps(p.ID)
		if err != nil {
			return fmt.Errorf("load plan %s: %w", p.ID, err)
		}
		age := formatDuration(time.Since(p.CreatedAt))
		fmt.Printf("  %s  %-12s  %d/%d done  %s  (%s ago)\n",
			shortID(p.ID),
			colorStatus(string(p.Status)),
			pws.CompletedSteps, pws.TotalSteps,
			truncateLine(p.Goal, 48),
			age)
	}
	fmt.Println("\nShow a plan's steps with: finscope status <plan-id>")
	return nil
}

// showPlanStatus prints one plan with its steps and message log.
func showPlanStatus(db *store.DB, planID string) error {
	pws, err := db.GetPlanWithSteps(planID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if pws == nil {
		return fmt.Errorf("plan %s not found", planID)
	}

	msgs, err := db.ListMessages(pws.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	if statusFormat != "table" {
		return printMachine(planDetail{PlanWithSteps: pws, Messages: msgs})
	}

	fmt.Printf("Plan %s\n", pws.ID)
	fmt.Printf("  Goal:    %s\n", pws.Goal)
	fmt.Printf("  Session: %s\n", pws.SessionID)
	fmt.Printf("  Status:  %s\n", colorStatus(string(pws.Status)))
	fmt.Printf("  Created: %s ago\n", formatDuration(time.Since(pws.CreatedAt)))
	fmt.Printf("  Steps:   %d total, %d completed, %d failed\n",
		pws.TotalSteps, pws.CompletedSteps, pws.FailedSteps)

	fmt.Println("\nSteps:")
	for i, st := range pws.Steps {
		fmt.Printf("  %s %d. [%s] %s (%s)\n",
			stepGlyph(st.Status), i+1, st.Agent,
			truncateLine(st.EffectiveAction(), 56),
			st.Status)
		if st.Status == models.StepStatusPlanned || st.Status == models.StepStatusAwaitingFeedback {
			// Full ID so the step can be addressed with 'finscope approve'.
			fmt.Printf("       id: %s\n", st.ID)
		}
		if st.Status == models.StepStatusFailed && st.ErrorMessage != "" {
			color.New(color.FgRed).Printf("       %s\n", truncateLine(st.ErrorMessage, 64))
		}
		if st.HumanFeedback != "" {
			fmt.Printf("       feedback: %s\n", truncateLine(st.HumanFeedback, 56))
		}
	}

	if len(msgs) > 0 {
		fmt.Println("\nMessages:")
		for _, m := range msgs {
			fmt.Printf("  [%s] %s\n", m.Source, truncateLine(m.Content, 70))
		}
	}
	return nil
}

// printMachine emits v as JSON or YAML per the --format flag.
func printMachine(v any) error {
	switch statusFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	return nil
}

// colorStatus renders a plan or step status word in its conventional color.
func colorStatus(status string) string {
	switch status {
	case string(models.PlanStatusCompleted):
		return color.GreenString(status)
	case string(models.PlanStatusFailed):
		return color.RedString(status)
	case string(models.PlanStatusInProgress):
		return color.YellowString(status)
	default:
		return status
	}
}

// stepGlyph matches the TUI's step icons for consistent reading.
func stepGlyph(s models.StepStatus) string {
	switch s {
	case models.StepStatusCompleted:
		return color.GreenString("✓")
	case models.StepStatusFailed, models.StepStatusRejected:
		return color.RedString("✗")
	case models.StepStatusExecuting:
		return color.YellowString("●")
	case models.StepStatusAwaitingFeedback:
		return color.YellowString("◐")
	default:
		return "○"
	}
}

func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return s[:max-1] + "…"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// formatNumber formats a number with commas.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		result.WriteString(s[:offset])
		if len(s) > offset {
			result.WriteString(",")
		}
	}
	for i := offset; i < len(s); i += 3 {
		result.WriteString(s[i : i+3])
		if i+3 < len(s) {
			result.WriteString(",")
		}
	}
	return result.String()
}

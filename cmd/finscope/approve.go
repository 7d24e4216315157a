package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kpenrose/finscope/internal/config"
	"github.com/kpenrose/finscope/internal/orchestrator"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

var (
	approveReject  bool
	approveComment string
	approveAction  string
)

var approveCmd = &cobra.Command{
	Use:   "approve <step-id>",
	Short: "Approve or reject a pending step",
	Long: `Record a human decision on a step waiting for review.

A headless 'finscope run' picks the decision up on its next poll. Use
--reject to refuse the step, --comment to attach the reasoning, and
--action to replace the planned action before it executes.

Find pending step IDs with 'finscope status <plan-id>'.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	approveCmd.Flags().BoolVar(&approveReject, "reject", false, "Reject the step instead of approving it")
	approveCmd.Flags().StringVar(&approveComment, "comment", "", "Feedback comment recorded on the step")
	approveCmd.Flags().StringVar(&approveAction, "action", "", "Revised action to execute instead of the planned one")
}

func runApprove(cmd *cobra.Command, args []string) error {
	stepID := args[0]
	if approveReject && approveAction != "" {
		return fmt.Errorf("--action only applies when approving")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logx.Init(logx.Config{Debug: cfg.Log.Debug, Pretty: cfg.Log.Pretty})

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	approvals := orchestrator.NewApprovalManager(db, nil)
	st, err := approvals.Submit(models.HumanFeedback{
		StepID:        stepID,
		Approved:      !approveReject,
		HumanFeedback: approveComment,
		UpdatedAction: approveAction,
	})
	if err != nil {
		return err
	}

	if approveReject {
		color.New(color.FgRed).Printf("✗ Rejected step %s\n", shortID(st.ID))
	} else {
		color.New(color.FgGreen).Printf("✓ Approved step %s: %s\n",
			shortID(st.ID), truncateLine(st.EffectiveAction(), 56))
	}
	return nil
}

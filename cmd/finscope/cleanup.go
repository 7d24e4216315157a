package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpenrose/finscope/internal/config"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/models"
)

var (
	cleanupForce     bool
	cleanupDryRun    bool
	cleanupOlderThan time.Duration
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [plan-id]",
	Short: "Purge old plans, or abandon an interrupted one",
	Long: `Delete old plans, their steps, and their message logs from the store.

Plans older than the cutoff are removed; everything newer stays untouched.
A purged plan can no longer be inspected with 'finscope status'.

With a plan ID, the plan is abandoned instead: steps stuck in executing
after a crash are marked failed and the plan is marked failed. Use this
when an interrupted plan should not be resumed.

Examples:
  finscope cleanup                    # Purge plans older than 30 days, with confirmation
  finscope cleanup --force            # Skip the confirmation prompt
  finscope cleanup --dry-run          # Show what would be purged
  finscope cleanup --older-than 168h  # Purge plans older than a week
  finscope cleanup <plan-id>          # Abandon an interrupted plan`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be purged without purging")
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 30*24*time.Hour, "Purge plans older than this")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		fmt.Println("No store found - nothing to purge.")
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

	if len(args) == 1 {
		return abandonPlan(db, args[0])
	}

	cutoff := time.Now().Add(-cleanupOlderThan)
	plans, err := db.ListPlans("")
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	count := 0
	for _, p := range plans {
		if p.CreatedAt.Before(cutoff) {
			count++
		}
	}

	if count == 0 {
		fmt.Printf("No plans older than %s found.\n", formatDuration(cleanupOlderThan))
		return nil
	}

	if cleanupDryRun {
		fmt.Printf("Dry run: would purge %d plan(s) older than %s.\n", count, formatDuration(cleanupOlderThan))
		return nil
	}

	if !cleanupForce {
		fmt.Printf("Purge %d plan(s) older than %s? [y/N] ", count, formatDuration(cleanupOlderThan))
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cleanup cancelled.")
			return nil
		}
	}

	purged, err := db.PurgeOldPlans(cleanupOlderThan)
	if err != nil {
		return fmt.Errorf("purge old plans: %w", err)
	}
	fmt.Printf("Purged %d plan(s) older than %s.\n", purged, formatDuration(cleanupOlderThan))
	return nil
}

// abandonPlan marks an interrupted plan and its stuck steps failed.
func abandonPlan(db *store.DB, planID string) error {
	pws, err := db.GetPlanWithSteps(planID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if pws == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	if pws.Status != models.PlanStatusInProgress {
		fmt.Printf("Plan %s is already %s - nothing to abandon.\n", shortID(planID), pws.Status)
		return nil
	}

	if err := store.NewRecoveryManager(db).Clean(planID); err != nil {
		return fmt.Errorf("abandon plan: %w", err)
	}
	fmt.Printf("Abandoned plan %s.\n", shortID(planID))
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kpenrose/finscope/internal/agent"
	"github.com/kpenrose/finscope/internal/capability"
	"github.com/kpenrose/finscope/internal/config"
	"github.com/kpenrose/finscope/internal/factory"
	"github.com/kpenrose/finscope/internal/orchestrator"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

var (
	runSession     string
	runUser        string
	runAutoApprove bool
	runWatch       bool
	runHeadless    bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Plan and execute a research goal",
	Long: `Run a research goal through the agent roster.

The goal is decomposed into steps, each addressed to a specialist agent
(company profile, earnings calls, fundamentals, technicals, SEC filings,
forecast). Every step waits for human approval before it executes; approved
steps run one at a time so later agents can read earlier results.

Feedback channels:
  default          Interactive TUI: review, approve, reject, or revise steps
  --auto-approve   Pre-approve every step and run without review
  --watch          Headless; feedback arrives as JSON files in a watched dir
  --headless       No TUI; approve steps with 'finscope approve <step-id>'

Reusing --session keeps the agent roster of an earlier run, so repeated
goals in one research session skip agent creation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoal,
}

func init() {
	runCmd.Flags().StringVar(&runSession, "session", "", "Session ID to reuse (default: a fresh session)")
	runCmd.Flags().StringVar(&runUser, "user", "", "User ID recorded on the plan (default: local)")
	runCmd.Flags().BoolVar(&runAutoApprove, "auto-approve", false, "Approve every step without review")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Headless mode with a feedback file watcher")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without TUI; approve steps via the CLI")
}

// runDeps bundles the wired collaborators the execution modes share.
type runDeps struct {
	db        *store.DB
	coord     *orchestrator.Coordinator
	approvals *orchestrator.ApprovalManager
	emitter   *orchestrator.EventEmitter
	tokens    *capability.TokenTracker
	watchDir  string
	poll      time.Duration
}

func runGoal(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" {
		return fmt.Errorf("goal must not be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logx.Init(logx.Config{Debug: cfg.Log.Debug, Pretty: cfg.Log.Pretty})

	apiKey, err := config.GetAPIKey(cfg)
	if err != nil {
		return fmt.Errorf("%w\n\nSet OPENAI_API_KEY or run 'finscope config openai.api_key <key>'", err)
	}

	sessionID := runSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	userID := runUser
	if userID == "" {
		userID = "local"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	// A crash mid-dispatch leaves steps stuck in executing; put them back in
	// the approved queue before planning anything new.
	recovery := store.NewRecoveryManager(db)
	if interrupted, err := recovery.CheckForInterrupted(); err != nil {
		fmt.Printf("Warning: recovery check failed: %v\n", err)
	} else if interrupted != nil {
		fmt.Printf("Recovering plan %s: %d step(s) were executing when the last run stopped\n",
			interrupted.PlanID, interrupted.ExecutingSteps)
		if err := recovery.Resume(interrupted.PlanID); err != nil {
			fmt.Printf("Warning: recovery failed: %v\n", err)
		}
	}

	client, err := capability.NewOpenAIClient(capability.ClientConfig{
		APIKey:  apiKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	})
	if err != nil {
		return fmt.Errorf("create execution client: %w", err)
	}

	var overrides map[models.AgentType]agent.Override
	if cfg.Agents.InstructionsDir != "" {
		overrides, err = agent.LoadOverrides(cfg.Agents.InstructionsDir)
		if err != nil {
			fmt.Printf("Warning: instruction overrides unavailable: %v\n", err)
			overrides = nil
		}
	}

	tokens := capability.NewTokenTracker()
	fac := factory.New(factory.Options{
		Client:         client,
		Store:          db,
		GroundedSearch: capability.NewGroundedSearch(cfg.Search.Web.Endpoint, cfg.Search.Web.APIKey),
		DocumentSearch: capability.NewDocumentSearch(client.SDK(), cfg.Search.Documents.VectorStoreID, cfg.Search.Documents.VectorStoreName),
		Overrides:      overrides,
		Model:          cfg.OpenAI.Model,
		Temperature:    cfg.OpenAI.Temperature,
		Tokens:         tokens,
	})

	fmt.Printf("Preparing agents for session %s...\n", sessionID)
	mgr, err := fac.CreateAllAgents(ctx, sessionID, userID)
	if err != nil {
		return fmt.Errorf("create agents: %w", err)
	}

	fmt.Printf("Decomposing goal: %s\n", goal)
	plan, steps, err := mgr.Planner().DecomposeGoal(ctx, goal)
	if err != nil {
		return fmt.Errorf("decompose goal: %w", err)
	}
	fmt.Printf("Plan %s: %d step(s) await review\n\n", plan.ID, len(steps))

	pws, err := db.GetPlanWithSteps(plan.ID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	emitter := orchestrator.NewEventEmitter(64)
	coord, err := orchestrator.NewCoordinator(orchestrator.Options{
		Agents:      fac,
		Store:       db,
		Emitter:     emitter,
		StepTimeout: cfg.Agents.StepTimeout,
	})
	if err != nil {
		return err
	}

	deps := runDeps{
		db:        db,
		coord:     coord,
		approvals: orchestrator.NewApprovalManager(db, emitter),
		emitter:   emitter,
		tokens:    tokens,
		watchDir:  cfg.Approval.WatchDir,
		poll:      cfg.Approval.PollInterval,
	}

	var runErr error
	switch {
	case runAutoApprove || cfg.Approval.AutoApprove:
		runErr = runAutoApproved(ctx, deps, pws)
	case runWatch || runHeadless:
		runErr = runHeadlessMode(ctx, deps, pws, runWatch)
	default:
		runErr = runWithTUI(ctx, cancel, deps, pws)
	}

	printTokenUsage(tokens)
	if runErr != nil && errors.Is(runErr, context.Canceled) {
		fmt.Println("Run cancelled; the plan can be resumed with another 'finscope run'.")
		return nil
	}
	return runErr
}

// drivePlan loops dispatch passes until the plan leaves in_progress, waking
// on feedback decisions and on a poll tick so approvals written by another
// process (finscope approve, feedback files) are picked up too.
func drivePlan(ctx context.Context, d runDeps, planID string) (*models.PlanWithSteps, error) {
	poll := d.poll
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		pws, err := d.coord.RunPlan(ctx, planID)
		if err != nil {
			return pws, err
		}
		if pws.Status != models.PlanStatusInProgress {
			return pws, nil
		}

		select {
		case <-ctx.Done():
			return pws, ctx.Err()
		case <-d.approvals.Decisions():
		case <-ticker.C:
		}
	}
}

// runAutoApproved pre-approves every step and runs the plan to completion.
func runAutoApproved(ctx context.Context, d runDeps, pws *models.PlanWithSteps) error {
	printerDone := make(chan struct{})
	go printEvents(d.emitter.Events(), printerDone)

	d.coord.AnnouncePlan(pws)
	n, err := d.approvals.ApproveAll(pws.ID)
	if err != nil {
		return fmt.Errorf("approve steps: %w", err)
	}
	fmt.Printf("Auto-approved %d step(s)\n\n", n)

	final, runErr := drivePlan(ctx, d, pws.ID)

	d.emitter.Close()
	<-printerDone

	if runErr != nil {
		return runErr
	}
	reportOutcome(final)
	return nil
}

// runHeadlessMode runs without a TUI. Feedback arrives from the watcher's
// file drops when watch is set, or from 'finscope approve' in another
// process otherwise.
func runHeadlessMode(ctx context.Context, d runDeps, pws *models.PlanWithSteps, watch bool) error {
	printerDone := make(chan struct{})
	go printEvents(d.emitter.Events(), printerDone)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchDone := make(chan struct{})
	if watch {
		dir := d.watchDir
		if dir == "" {
			dir = ".finscope/feedback"
		}
		watcher, err := orchestrator.NewFeedbackWatcher(dir, d.poll, d.approvals)
		if err != nil {
			return fmt.Errorf("start feedback watcher: %w", err)
		}
		go func() {
			defer close(watchDone)
			if err := watcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Printf("Warning: feedback watcher stopped: %v\n", err)
			}
		}()
		fmt.Printf("Watching %s for feedback files\n\n", dir)
	} else {
		close(watchDone)
		fmt.Println("Steps await review; approve them with 'finscope approve <step-id>' from another terminal.")
		fmt.Println()
	}

	d.coord.AnnouncePlan(pws)
	final, runErr := drivePlan(ctx, d, pws.ID)

	stopWatch()
	<-watchDone
	d.emitter.Close()
	<-printerDone

	if runErr != nil {
		return runErr
	}
	reportOutcome(final)
	return nil
}

// printEvents renders orchestrator events as log lines for headless runs.
func printEvents(events <-chan orchestrator.Event, done chan<- struct{}) {
	defer close(done)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for ev := range events {
		switch ev.Type {
		case orchestrator.EventPlanCreated:
			fmt.Printf("[PLAN] %s\n", ev.Message)
		case orchestrator.EventStepQueued:
			fmt.Printf("[STEP] %s: %s\n", ev.Agent, ev.Message)
		case orchestrator.EventStepAwaitingFeedback:
			yellow.Printf("[REVIEW] %s awaits approval: %s\n", shortID(ev.StepID), ev.Message)
		case orchestrator.EventStepApproved:
			fmt.Printf("[APPROVED] %s\n", shortID(ev.StepID))
		case orchestrator.EventStepRejected:
			fmt.Printf("[REJECTED] %s: %s\n", shortID(ev.StepID), ev.Message)
		case orchestrator.EventStepStarted:
			fmt.Printf("[STARTED] %s: %s\n", ev.Agent, ev.Message)
		case orchestrator.EventStepCompleted:
			green.Printf("[DONE] %s: %s\n", ev.Agent, ev.Message)
		case orchestrator.EventStepFailed:
			red.Printf("[FAILED] %s: %s\n", ev.Agent, ev.Err)
		case orchestrator.EventPlanDone:
			fmt.Printf("[PLAN] %s\n", ev.Message)
		}
	}
}

// reportOutcome prints the plan's final state with a status pointer.
func reportOutcome(pws *models.PlanWithSteps) {
	if pws == nil {
		return
	}
	fmt.Println()
	switch pws.Status {
	case models.PlanStatusCompleted:
		if pws.FailedSteps > 0 {
			color.New(color.FgYellow).Printf("Plan finished: %d/%d step(s) completed, %d failed\n",
				pws.CompletedSteps, pws.TotalSteps, pws.FailedSteps)
		} else {
			color.New(color.FgGreen).Printf("Plan completed: %d/%d step(s)\n",
				pws.CompletedSteps, pws.TotalSteps)
		}
	case models.PlanStatusFailed:
		color.New(color.FgRed).Printf("Plan abandoned: %d/%d step(s) completed\n",
			pws.CompletedSteps, pws.TotalSteps)
	default:
		fmt.Printf("Plan %s is still in progress\n", pws.ID)
	}
	fmt.Printf("Inspect results with: finscope status %s\n", pws.ID)
}

// printTokenUsage summarizes backend token consumption for the run.
func printTokenUsage(t *capability.TokenTracker) {
	usage := t.Usage()
	if usage.Runs == 0 {
		return
	}

	fmt.Printf("\nToken usage: %s prompt + %s completion = %s total (%d run(s))\n",
		formatNumber(usage.PromptTokens),
		formatNumber(usage.CompletionTokens),
		formatNumber(usage.TotalTokens),
		usage.Runs)

	byAgent := t.ByAgent()
	names := make([]string, 0, len(byAgent))
	for name := range byAgent {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u := byAgent[name]
		fmt.Printf("  %-20s %s tokens in %d run(s)\n", name, formatNumber(u.TotalTokens), u.Runs)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

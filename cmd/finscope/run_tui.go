package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/kpenrose/finscope/internal/orchestrator"
	"github.com/kpenrose/finscope/internal/tui"
	"github.com/kpenrose/finscope/pkg/models"
)

// orchResult carries the plan run's outcome across the TUI boundary.
type orchResult struct {
	pws *models.PlanWithSteps
	err error
}

// runWithTUI drives the plan while the review TUI owns the terminal.
// Decisions made in the TUI are persisted through the approval manager;
// orchestrator events stream into the TUI's log pane.
func runWithTUI(ctx context.Context, cancel context.CancelFunc, d runDeps, pws *models.PlanWithSteps) (retErr error) {
	// zerolog writes to stderr, which corrupts the alt-screen. Hold all
	// operational logging until the TUI exits.
	prevLogger := zlog.Logger
	zlog.Logger = zerolog.New(io.Discard)
	defer func() { zlog.Logger = prevLogger }()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in TUI mode: %v", r)
		}
	}()

	program, app := tui.NewReviewProgram()
	app.SetDecisionHandler(func(fb models.HumanFeedback) {
		if _, err := d.approvals.Submit(fb); err != nil {
			program.Send(tui.EventMsg{Event: orchestrator.Event{
				StepID: fb.StepID,
				Err:    fmt.Sprintf("feedback not recorded: %v", err),
			}})
		}
	})

	// One goroutine seeds the plan and then forwards events, so the step
	// list is on screen before the first event lands.
	go func() {
		program.Send(tui.PlanMsg{Plan: pws})
		for ev := range d.emitter.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
	}()

	orchDone := make(chan orchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				orchDone <- orchResult{err: fmt.Errorf("panic in plan run: %v", r)}
			}
		}()
		d.coord.AnnouncePlan(pws)
		final, err := drivePlan(ctx, d, pws.ID)
		orchDone <- orchResult{pws: final, err: err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("panic in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case res := <-orchDone:
		// Plan finished first: show the outcome and wait for the reviewer
		// to quit so they can read the final state.
		program.Send(tui.SessionDoneMsg{Success: res.err == nil, Message: doneMessage(res)})
		<-tuiDone
		d.emitter.Close()
		if res.err != nil {
			return res.err
		}
		reportOutcome(res.pws)
		return nil

	case err := <-tuiDone:
		// The reviewer quit while steps were still pending; stop the run.
		cancel()
		res := <-orchDone
		d.emitter.Close()
		if err != nil {
			return err
		}
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			return res.err
		}
		reportOutcome(res.pws)
		return nil
	}
}

func doneMessage(res orchResult) string {
	if res.err != nil {
		return res.err.Error()
	}
	if res.pws == nil {
		return "plan finished"
	}
	if res.pws.FailedSteps > 0 {
		return fmt.Sprintf("%d/%d steps completed, %d failed",
			res.pws.CompletedSteps, res.pws.TotalSteps, res.pws.FailedSteps)
	}
	return fmt.Sprintf("%d/%d steps completed", res.pws.CompletedSteps, res.pws.TotalSteps)
}

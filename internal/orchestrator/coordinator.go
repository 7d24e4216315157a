// Package orchestrator sequences a plan's steps through their assigned
// agents. Approved steps are dispatched in creation order; steps waiting on
// a human are surfaced and skipped so a run never blocks on feedback; a
// failed dispatch is recorded on its step without aborting the plan.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/internal/agent"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// AgentSource resolves agents that already exist for a session. The
// coordinator never constructs agents; the roster is built before a plan
// runs.
type AgentSource interface {
	CachedAgent(sessionID string, t models.AgentType) (*agent.Agent, bool)
}

// Store is the persistence surface the coordinator drives.
type Store interface {
	store.PlanStore
	store.StepStore
}

// StepExecutionError wraps a failed agent dispatch. The coordinator records
// it on the step and continues with the next one; it never aborts the plan.
type StepExecutionError struct {
	StepID string
	Agent  models.AgentType
	Err    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("dispatch step %s to %s: %v", e.StepID, e.Agent, e.Err)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }

// Coordinator drives one plan at a time through a sequential pass over its
// steps. Sequential execution is the contract: later steps read earlier
// steps' results through the plan's message log.
type Coordinator struct {
	agents      AgentSource
	store       Store
	emitter     *EventEmitter
	stepTimeout time.Duration
	log         zerolog.Logger
}

// Options configures a Coordinator.
type Options struct {
	// Agents resolves cached agents for dispatch. Required.
	Agents AgentSource
	// Store persists plan and step mutations. Required.
	Store Store
	// Emitter receives progress events. Optional.
	Emitter *EventEmitter
	// StepTimeout bounds one agent dispatch. Zero means no deadline.
	StepTimeout time.Duration
}

// NewCoordinator creates a coordinator from the given options.
func NewCoordinator(o Options) (*Coordinator, error) {
	if o.Agents == nil {
		return nil, errors.New("coordinator requires an agent source")
	}
	if o.Store == nil {
		return nil, errors.New("coordinator requires a store")
	}
	return &Coordinator{
		agents:      o.Agents,
		store:       o.Store,
		emitter:     o.Emitter,
		stepTimeout: o.StepTimeout,
		log:         logx.Component("coordinator"),
	}, nil
}

// AnnouncePlan emits the creation events for a freshly decomposed plan so
// subscribers see the full step list before the first run.
func (c *Coordinator) AnnouncePlan(pws *models.PlanWithSteps) {
	if pws == nil {
		return
	}
	c.emitter.Emit(Event{
		Type:    EventPlanCreated,
		PlanID:  pws.ID,
		Message: pws.Goal,
	})
	for _, st := range pws.Steps {
		c.emitter.Emit(Event{
			Type:    EventStepQueued,
			PlanID:  st.PlanID,
			StepID:  st.ID,
			Agent:   st.Agent,
			Message: st.Action,
		})
	}
}

// RunPlan makes one pass over the plan's steps in creation order and returns
// the read model reflecting the state after the pass.
//
// Steps still waiting on a reviewer are marked awaiting_feedback and
// skipped; the caller resumes the plan once feedback lands. Approved steps
// are dispatched to their agents; a failed dispatch marks only that step
// failed and the pass continues. The plan's aggregate status is recomputed
// and persisted after every step mutation, so an interrupted pass leaves a
// consistent record. Persistence failures and transition-table violations
// abort the pass; the latter signal an orchestration bug and are never
// swallowed.
func (c *Coordinator) RunPlan(ctx context.Context, planID string) (*models.PlanWithSteps, error) {
	pws, err := c.store.GetPlanWithSteps(planID)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}
	if pws == nil {
		return nil, fmt.Errorf("plan %s not found", planID)
	}

	c.log.Info().Str("plan_id", planID).Int("steps", len(pws.Steps)).Msg("plan pass started")
	alreadyDone := pws.Status == models.PlanStatusCompleted

	for _, st := range pws.Steps {
		if err := ctx.Err(); err != nil {
			return pws, err
		}
		if st.Status.Terminal() {
			continue
		}
		switch st.HumanApprovalStatus {
		case models.FeedbackRequested:
			if err := c.surfaceForFeedback(st); err != nil {
				return pws, err
			}
		case models.FeedbackApproved:
			if st.Status != models.StepStatusApproved {
				// Executing leftover from an interrupted run; recovery
				// resets those before the next pass.
				continue
			}
			if err := c.dispatch(ctx, pws, st); err != nil {
				return pws, err
			}
		}
	}

	if err := c.persistPlanStatus(pws); err != nil {
		return pws, err
	}
	if pws.Status == models.PlanStatusCompleted && !alreadyDone {
		c.emitter.Emit(Event{
			Type:    EventPlanDone,
			PlanID:  pws.ID,
			Message: fmt.Sprintf("%d/%d steps completed, %d failed", pws.CompletedSteps, pws.TotalSteps, pws.FailedSteps),
		})
		c.log.Info().Str("plan_id", pws.ID).
			Int("completed", pws.CompletedSteps).
			Int("failed", pws.FailedSteps).
			Msg("plan finished")
	}
	return pws, nil
}

// surfaceForFeedback moves a planned step to awaiting_feedback and notifies
// subscribers. Steps already awaiting are left untouched, so re-running a
// yielded plan does not repeat the notification.
func (c *Coordinator) surfaceForFeedback(st *models.Step) error {
	if st.Status == models.StepStatusAwaitingFeedback {
		return nil
	}
	if err := st.Transition(models.StepStatusAwaitingFeedback); err != nil {
		return err
	}
	if err := c.store.UpdateStep(st); err != nil {
		return fmt.Errorf("persist step %s: %w", st.ID, err)
	}
	c.emitter.Emit(Event{
		Type:    EventStepAwaitingFeedback,
		PlanID:  st.PlanID,
		StepID:  st.ID,
		Agent:   st.Agent,
		Message: st.Action,
	})
	c.log.Info().Str("step_id", st.ID).Str("agent", string(st.Agent)).Msg("step awaiting human feedback")
	return nil
}

// dispatch runs one approved step on its agent and records the outcome.
func (c *Coordinator) dispatch(ctx context.Context, pws *models.PlanWithSteps, st *models.Step) error {
	ag, ok := c.agents.CachedAgent(st.SessionID, st.Agent)
	if !ok {
		return fmt.Errorf("no cached %s for session %s: create the session roster before running the plan", st.Agent, st.SessionID)
	}

	if err := st.Transition(models.StepStatusExecuting); err != nil {
		return err
	}
	if err := c.store.UpdateStep(st); err != nil {
		return fmt.Errorf("persist step %s: %w", st.ID, err)
	}
	action := st.EffectiveAction()
	c.emitter.Emit(Event{
		Type:    EventStepStarted,
		PlanID:  st.PlanID,
		StepID:  st.ID,
		Agent:   st.Agent,
		Message: action,
	})

	runCtx := ctx
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}
	resp, err := ag.HandleActionRequest(runCtx, &models.ActionRequest{
		StepID:    st.ID,
		PlanID:    st.PlanID,
		SessionID: st.SessionID,
		Action:    action,
		Agent:     st.Agent,
	})
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Interrupted run: the step stays executing for recovery to
			// reset, rather than being misreported as a failure.
			return ctx.Err()
		}
		execErr := &StepExecutionError{StepID: st.ID, Agent: st.Agent, Err: err}
		if errors.Is(err, context.DeadlineExceeded) {
			execErr.Err = fmt.Errorf("timed out after %s: %w", c.stepTimeout, err)
		}
		return c.recordFailure(pws, st, execErr)
	}
	return c.recordSuccess(pws, st, resp.Result)
}

func (c *Coordinator) recordSuccess(pws *models.PlanWithSteps, st *models.Step, result string) error {
	if err := st.MarkCompleted(result); err != nil {
		return err
	}
	if err := c.store.UpdateStep(st); err != nil {
		return fmt.Errorf("persist step %s: %w", st.ID, err)
	}
	c.emitter.Emit(Event{
		Type:    EventStepCompleted,
		PlanID:  st.PlanID,
		StepID:  st.ID,
		Agent:   st.Agent,
		Message: result,
	})
	c.log.Info().Str("step_id", st.ID).Str("agent", string(st.Agent)).Msg("step completed")
	return c.persistPlanStatus(pws)
}

func (c *Coordinator) recordFailure(pws *models.PlanWithSteps, st *models.Step, execErr *StepExecutionError) error {
	c.log.Warn().Err(execErr).Str("step_id", st.ID).Msg("step failed")
	if err := st.MarkFailed(execErr.Error()); err != nil {
		return err
	}
	if err := c.store.UpdateStep(st); err != nil {
		return fmt.Errorf("persist step %s: %w", st.ID, err)
	}
	c.emitter.Emit(Event{
		Type:   EventStepFailed,
		PlanID: st.PlanID,
		StepID: st.ID,
		Agent:  st.Agent,
		Err:    execErr.Error(),
	})
	return c.persistPlanStatus(pws)
}

// persistPlanStatus recomputes the aggregate from the in-memory steps and
// writes the plan row.
func (c *Coordinator) persistPlanStatus(pws *models.PlanWithSteps) error {
	pws.RecomputeStatus()
	if err := c.store.UpdatePlan(&pws.Plan); err != nil {
		return fmt.Errorf("persist plan %s: %w", pws.ID, err)
	}
	return nil
}

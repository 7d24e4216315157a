package orchestrator

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// decisionBuffer bounds how many undrained decisions the manager holds
// before new ones are dropped from the wakeup channel. The decisions
// themselves are always persisted; only the wakeup is best-effort.
const decisionBuffer = 16

// ApprovalManager is the intake for human decisions on plan steps. Every
// decision is validated against the step state machine, persisted, surfaced
// as an event, and published on the decisions channel so a paused run loop
// can resume.
type ApprovalManager struct {
	steps   store.StepStore
	emitter *EventEmitter
	decided chan string
	log     zerolog.Logger
}

// NewApprovalManager creates a manager over the given step store.
func NewApprovalManager(steps store.StepStore, emitter *EventEmitter) *ApprovalManager {
	return &ApprovalManager{
		steps:   steps,
		emitter: emitter,
		decided: make(chan string, decisionBuffer),
		log:     logx.Component("approval"),
	}
}

// Submit applies one human decision to its step and returns the updated
// step. The step must still be reviewable: feedback on an executing or
// terminal step is refused by the state machine with an
// InvalidTransitionError. A revised action, when present, replaces the
// planned one at dispatch time.
func (m *ApprovalManager) Submit(fb models.HumanFeedback) (*models.Step, error) {
	st, err := m.steps.GetStep(fb.StepID)
	if err != nil {
		return nil, fmt.Errorf("load step %s: %w", fb.StepID, err)
	}
	if st == nil {
		return nil, fmt.Errorf("step %s not found", fb.StepID)
	}
	if err := st.ApplyFeedback(fb.Approved, fb.HumanFeedback, fb.UpdatedAction); err != nil {
		return nil, err
	}
	if err := m.steps.UpdateStep(st); err != nil {
		return nil, fmt.Errorf("persist step %s: %w", st.ID, err)
	}

	evType := EventStepApproved
	if !fb.Approved {
		evType = EventStepRejected
	}
	m.emitter.Emit(Event{
		Type:    evType,
		PlanID:  st.PlanID,
		StepID:  st.ID,
		Agent:   st.Agent,
		Message: fb.HumanFeedback,
	})
	m.log.Info().Str("step_id", st.ID).Bool("approved", fb.Approved).Msg("feedback applied")

	select {
	case m.decided <- st.ID:
	default:
	}
	return st, nil
}

// Decisions returns the channel carrying the ids of freshly decided steps.
// The run loop blocks on it while a plan is yielded on feedback.
func (m *ApprovalManager) Decisions() <-chan string {
	return m.decided
}

// Pending lists the plan's steps currently waiting on a reviewer, in
// creation order.
func (m *ApprovalManager) Pending(planID string) ([]*models.Step, error) {
	return m.steps.ListStepsByStatus(planID, models.StepStatusAwaitingFeedback)
}

// ApproveAll approves every undecided step of the plan, whether already
// surfaced to a reviewer or still only planned, and returns how many were
// approved. Backs the auto-approve mode, which accepts the whole plan
// before the first dispatch pass.
func (m *ApprovalManager) ApproveAll(planID string) (int, error) {
	planned, err := m.steps.ListStepsByStatus(planID, models.StepStatusPlanned)
	if err != nil {
		return 0, fmt.Errorf("list planned steps: %w", err)
	}
	awaiting, err := m.Pending(planID)
	if err != nil {
		return 0, fmt.Errorf("list pending steps: %w", err)
	}
	pending := append(planned, awaiting...)
	for i, st := range pending {
		fb := models.HumanFeedback{
			StepID:    st.ID,
			PlanID:    st.PlanID,
			SessionID: st.SessionID,
			Approved:  true,
		}
		if _, err := m.Submit(fb); err != nil {
			return i, fmt.Errorf("approve step %s: %w", st.ID, err)
		}
	}
	return len(pending), nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanStatus represents the aggregate state of a plan.
type PlanStatus string

const (
	// PlanStatusInProgress indicates at least one step is not terminal.
	PlanStatusInProgress PlanStatus = "in_progress"
	// PlanStatusCompleted indicates every step reached a terminal state.
	// Failed steps count: the aggregate answers "is execution finished",
	// not "did it succeed". Check FailedSteps for the success rollup.
	PlanStatusCompleted PlanStatus = "completed"
	// PlanStatusFailed indicates the plan was abandoned before its steps
	// finished, for example by cleaning up an interrupted run.
	PlanStatusFailed PlanStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusInProgress, PlanStatusCompleted, PlanStatusFailed:
		return true
	default:
		return false
	}
}

// Plan represents one user goal's execution.
type Plan struct {
	// ID is the unique identifier for this plan.
	ID string `json:"id"`
	// SessionID scopes the plan to a research session.
	SessionID string `json:"session_id"`
	// UserID is the owner of the session.
	UserID string `json:"user_id"`
	// Goal is the original natural-language research goal.
	Goal string `json:"goal"`
	// Status is the aggregate state, derived from the steps once they exist.
	Status PlanStatus `json:"status"`
	// CreatedAt is when the plan was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the plan last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlan creates a plan in its initial in_progress state.
func NewPlan(sessionID, userID, goal string) *Plan {
	now := time.Now().UTC()
	return &Plan{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Goal:      goal,
		Status:    PlanStatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlanWithSteps is the read model composing a plan with its ordered steps
// and the counters derived from them.
type PlanWithSteps struct {
	Plan
	// Steps holds the plan's steps in creation order.
	Steps []*Step `json:"steps"`
	// TotalSteps is the number of steps in the plan.
	TotalSteps int `json:"total_steps"`
	// CompletedSteps is the number of steps that completed successfully.
	CompletedSteps int `json:"completed"`
	// FailedSteps is the number of steps that failed.
	FailedSteps int `json:"failed"`
}

// RecomputeStatus refreshes the counters and the aggregate status from the
// steps. The aggregate is completed once every step is terminal, including
// failed and rejected ones. Recomputation is idempotent.
func (p *PlanWithSteps) RecomputeStatus() {
	p.TotalSteps = len(p.Steps)
	completed, failed, terminal := 0, 0, 0
	for _, st := range p.Steps {
		switch st.Status {
		case StepStatusCompleted:
			completed++
		case StepStatusFailed:
			failed++
		}
		if st.Status.Terminal() {
			terminal++
		}
	}
	p.CompletedSteps = completed
	p.FailedSteps = failed
	if p.TotalSteps > 0 && terminal == p.TotalSteps {
		p.Status = PlanStatusCompleted
	} else {
		p.Status = PlanStatusInProgress
	}
	p.UpdatedAt = time.Now().UTC()
}

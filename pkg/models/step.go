package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StepStatus represents the execution state of a step.
type StepStatus string

const (
	// StepStatusPlanned indicates the step was created but not yet surfaced
	// for review.
	StepStatusPlanned StepStatus = "planned"
	// StepStatusAwaitingFeedback indicates the step is waiting for human
	// approval.
	StepStatusAwaitingFeedback StepStatus = "awaiting_feedback"
	// StepStatusApproved indicates a human approved the step for execution.
	StepStatusApproved StepStatus = "approved"
	// StepStatusRejected indicates a human rejected the step; terminal,
	// the step never executes.
	StepStatusRejected StepStatus = "rejected"
	// StepStatusExecuting indicates the step was dispatched to its agent.
	StepStatusExecuting StepStatus = "executing"
	// StepStatusCompleted indicates the agent finished successfully.
	StepStatusCompleted StepStatus = "completed"
	// StepStatusFailed indicates the agent call failed.
	StepStatusFailed StepStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusPlanned, StepStatusAwaitingFeedback, StepStatusApproved,
		StepStatusRejected, StepStatusExecuting, StepStatusCompleted,
		StepStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transition is allowed from the status.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepStatusRejected, StepStatusCompleted, StepStatusFailed:
		return true
	default:
		return false
	}
}

// HumanFeedbackStatus represents where a step stands with its human reviewer.
type HumanFeedbackStatus string

const (
	// FeedbackRequested indicates no human has reviewed the step yet.
	FeedbackRequested HumanFeedbackStatus = "requested"
	// FeedbackApproved indicates a human approved the step.
	FeedbackApproved HumanFeedbackStatus = "approved"
	// FeedbackRejected indicates a human rejected the step.
	FeedbackRejected HumanFeedbackStatus = "rejected"
)

// Valid returns true if the feedback status is a known value.
func (s HumanFeedbackStatus) Valid() bool {
	switch s {
	case FeedbackRequested, FeedbackApproved, FeedbackRejected:
		return true
	default:
		return false
	}
}

// InvalidTransitionError reports an attempt to move a step or plan to a
// state its current state does not permit. It signals an orchestration bug,
// not an environmental failure, so callers should not swallow it.
type InvalidTransitionError struct {
	// Entity names what was being transitioned ("step" or "plan").
	Entity string
	// From is the current state.
	From string
	// To is the requested state.
	To string
	// Reason explains the violated guard, if one applies.
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s transition %s -> %s: %s", e.Entity, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Entity, e.From, e.To)
}

// stepTransitions is the allowed-successor table for step statuses.
// Terminal statuses have no successors.
var stepTransitions = map[StepStatus][]StepStatus{
	StepStatusPlanned:          {StepStatusAwaitingFeedback, StepStatusApproved, StepStatusRejected},
	StepStatusAwaitingFeedback: {StepStatusApproved, StepStatusRejected},
	StepStatusApproved:         {StepStatusExecuting},
	StepStatusExecuting:        {StepStatusCompleted, StepStatusFailed},
	StepStatusRejected:         {},
	StepStatusCompleted:        {},
	StepStatusFailed:           {},
}

// Step is one unit of delegated work within a plan.
type Step struct {
	// ID is the unique identifier for this step.
	ID string `json:"id"`
	// PlanID is the ID of the owning plan.
	PlanID string `json:"plan_id"`
	// SessionID scopes the step to a research session.
	SessionID string `json:"session_id"`
	// UserID is the owner of the session.
	UserID string `json:"user_id"`
	// Action is the instruction the assigned agent will execute.
	Action string `json:"action"`
	// Agent is the type assigned at creation; immutable afterwards.
	Agent AgentType `json:"agent"`
	// Status is the execution state of the step.
	Status StepStatus `json:"status"`
	// HumanApprovalStatus records where the step stands with its reviewer.
	HumanApprovalStatus HumanFeedbackStatus `json:"human_approval_status"`
	// HumanFeedback is the reviewer's free-text comment, if any.
	HumanFeedback string `json:"human_feedback,omitempty"`
	// UpdatedAction is a reviewer-revised instruction that replaces Action
	// at dispatch time when set.
	UpdatedAction string `json:"updated_action,omitempty"`
	// Result is the agent's output for a completed step.
	Result string `json:"result,omitempty"`
	// ErrorMessage captures the failure for a failed step.
	ErrorMessage string `json:"error_message,omitempty"`
	// CreatedAt is when the step was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the step last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStep creates a step in its initial state: planned, approval requested.
func NewStep(planID, sessionID, userID, action string, agent AgentType) *Step {
	now := time.Now().UTC()
	return &Step{
		ID:                  uuid.NewString(),
		PlanID:              planID,
		SessionID:           sessionID,
		UserID:              userID,
		Action:              action,
		Agent:               agent,
		Status:              StepStatusPlanned,
		HumanApprovalStatus: FeedbackRequested,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// EffectiveAction returns the instruction to dispatch: the reviewer's
// revision when present, the planned action otherwise.
func (s *Step) EffectiveAction() string {
	if s.UpdatedAction != "" {
		return s.UpdatedAction
	}
	return s.Action
}

// CanTransition reports whether the transition table allows moving to the
// given status. It does not evaluate approval guards; Transition does.
func (s *Step) CanTransition(to StepStatus) bool {
	for _, next := range stepTransitions[s.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the step to the given status, enforcing the transition
// table and the approval guard: a step may not begin executing unless its
// human approval status is approved.
func (s *Step) Transition(to StepStatus) error {
	if !to.Valid() {
		return &InvalidTransitionError{Entity: "step", From: string(s.Status), To: string(to), Reason: "unknown status"}
	}
	if !s.CanTransition(to) {
		return &InvalidTransitionError{Entity: "step", From: string(s.Status), To: string(to)}
	}
	if to == StepStatusExecuting && s.HumanApprovalStatus != FeedbackApproved {
		return &InvalidTransitionError{
			Entity: "step",
			From:   string(s.Status),
			To:     string(to),
			Reason: fmt.Sprintf("human approval status is %q, want %q", s.HumanApprovalStatus, FeedbackApproved),
		}
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyFeedback records a human decision on the step, moving both the
// approval status and the step status. Feedback on a step that already
// started executing, or that is terminal, is an error.
func (s *Step) ApplyFeedback(approved bool, comment, updatedAction string) error {
	if s.Status == StepStatusExecuting {
		return &InvalidTransitionError{
			Entity: "step", From: string(s.Status),
			To:     string(StepStatusApproved),
			Reason: "feedback after execution started",
		}
	}
	if s.Status.Terminal() {
		return &InvalidTransitionError{
			Entity: "step", From: string(s.Status),
			To:     string(StepStatusApproved),
			Reason: "step is terminal",
		}
	}

	target := StepStatusApproved
	feedback := FeedbackApproved
	if !approved {
		target = StepStatusRejected
		feedback = FeedbackRejected
	}
	if err := s.Transition(target); err != nil {
		return err
	}
	s.HumanApprovalStatus = feedback
	s.HumanFeedback = comment
	if updatedAction != "" {
		s.UpdatedAction = updatedAction
	}
	return nil
}

// MarkCompleted transitions the step to completed and attaches the result.
func (s *Step) MarkCompleted(result string) error {
	if err := s.Transition(StepStatusCompleted); err != nil {
		return err
	}
	s.Result = result
	return nil
}

// MarkFailed transitions the step to failed and records the error message.
func (s *Step) MarkFailed(errMsg string) error {
	if err := s.Transition(StepStatusFailed); err != nil {
		return err
	}
	s.ErrorMessage = errMsg
	return nil
}

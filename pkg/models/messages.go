package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentMessageDataType tags persisted agent messages so mixed-document
// stores can discriminate them.
const AgentMessageDataType = "agent_message"

// AgentMessage is one immutable entry in the conversation/audit log.
// Messages are appended, never mutated.
type AgentMessage struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// DataType is always AgentMessageDataType.
	DataType string `json:"data_type"`
	// SessionID scopes the message to a research session.
	SessionID string `json:"session_id"`
	// UserID is the owner of the session.
	UserID string `json:"user_id"`
	// PlanID references the plan this message belongs to.
	PlanID string `json:"plan_id"`
	// StepID references the step that produced the message, if any.
	StepID string `json:"step_id,omitempty"`
	// Content is the message body.
	Content string `json:"content"`
	// Source is the agent that produced the message.
	Source AgentType `json:"source"`
	// CreatedAt is when the message was appended.
	CreatedAt time.Time `json:"created_at"`
}

// NewAgentMessage creates an audit-log entry for the given plan exchange.
func NewAgentMessage(sessionID, userID, planID, stepID, content string, source AgentType) *AgentMessage {
	return &AgentMessage{
		ID:        uuid.NewString(),
		DataType:  AgentMessageDataType,
		SessionID: sessionID,
		UserID:    userID,
		PlanID:    planID,
		StepID:    stepID,
		Content:   content,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// ActionRequest is the message the coordinator sends to an agent: execute
// this step's action.
type ActionRequest struct {
	// StepID identifies the step being executed.
	StepID string `json:"step_id"`
	// PlanID identifies the owning plan.
	PlanID string `json:"plan_id"`
	// SessionID scopes the request to a research session.
	SessionID string `json:"session_id"`
	// Action is the instruction text to execute.
	Action string `json:"action"`
	// Agent is the type the request targets.
	Agent AgentType `json:"agent"`
}

// ActionResponse is the agent's reply to an ActionRequest.
type ActionResponse struct {
	// StepID identifies the step that was executed.
	StepID string `json:"step_id"`
	// PlanID identifies the owning plan.
	PlanID string `json:"plan_id"`
	// SessionID scopes the response to a research session.
	SessionID string `json:"session_id"`
	// Result is the agent's output.
	Result string `json:"result"`
	// Status is the step status the execution produced.
	Status StepStatus `json:"status"`
}

// HumanFeedback is one reviewer decision on one step.
type HumanFeedback struct {
	// StepID identifies the step the decision applies to.
	StepID string `json:"step_id"`
	// PlanID identifies the owning plan.
	PlanID string `json:"plan_id"`
	// SessionID scopes the feedback to a research session.
	SessionID string `json:"session_id"`
	// Approved is the reviewer's decision.
	Approved bool `json:"approved"`
	// HumanFeedback is the reviewer's free-text comment, if any.
	HumanFeedback string `json:"human_feedback,omitempty"`
	// UpdatedAction optionally revises the step's instruction.
	UpdatedAction string `json:"updated_action,omitempty"`
}

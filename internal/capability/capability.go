// Package capability wraps the external services the orchestrator depends
// on: the agent execution backend and the search backends. Everything the
// rest of the code knows about remote agents goes through these interfaces.
package capability

import (
	"context"
	"time"

	"github.com/openai/openai-go"
)

// AgentDefinition is a remote agent definition as the execution backend
// reports it.
type AgentDefinition struct {
	ID             string
	Name           string
	Model          string
	Instructions   string
	Temperature    float64
	Metadata       map[string]string
	ToolTypes      []string
	VectorStoreIDs []string
	CreatedAt      time.Time
}

// HasToolType reports whether the definition carries a tool of the given
// backend type, such as "file_search" or "function".
func (d *AgentDefinition) HasToolType(t string) bool {
	for _, tt := range d.ToolTypes {
		if tt == t {
			return true
		}
	}
	return false
}

// CreateAgentParams describes a new remote agent definition.
type CreateAgentParams struct {
	Name         string
	Model        string
	Instructions string
	Temperature  float64
	Metadata     map[string]string
	Tools        []openai.AssistantToolUnionParam
	// ResponseFormat constrains the definition's replies, for agents that
	// must answer in a machine-parseable shape.
	ResponseFormat *openai.AssistantResponseFormatOptionUnionParam
	// FileSearch attaches the file_search tool backed by the given vector
	// stores. Used by document-grounded agents only.
	FileSearch     bool
	VectorStoreIDs []string
}

// UpdateAgentParams describes an in-place revision of a remote definition.
// Zero-valued fields are left unchanged.
type UpdateAgentParams struct {
	Model        string
	Instructions string
	Temperature  *float64
	Tools        []openai.AssistantToolUnionParam
	// VectorStoreIDs replaces the file_search stores when non-nil.
	VectorStoreIDs []string
}

// ToolHandler resolves a tool call an agent makes during a run. Arguments
// arrive as the raw JSON string the model produced; the return value is fed
// back as the tool output.
type ToolHandler interface {
	HandleToolCall(ctx context.Context, name, arguments string) (string, error)
}

// RunParams describes one agent invocation.
type RunParams struct {
	AgentID string
	// Input is the user-role message that starts the run.
	Input string
	// Instructions, when set, are appended to the agent's base instructions
	// for this run only.
	Instructions string
	// Handler resolves tool calls the agent makes mid-run. A run that
	// requests tools with no handler fails.
	Handler ToolHandler
	// PollIntervalMs overrides the run polling interval. Zero uses the
	// backend default.
	PollIntervalMs int
}

// RunResult is the outcome of a completed agent run.
type RunResult struct {
	Output           string
	RunID            string
	ThreadID         string
	PromptTokens     int64
	CompletionTokens int64
}

// ExecutionClient is the execution backend boundary: definition CRUD plus
// running an agent to completion.
type ExecutionClient interface {
	// ListAgentsByName returns every remote definition whose name matches
	// exactly. The backend has no server-side name filter, so matches are
	// found by walking the definition list.
	ListAgentsByName(ctx context.Context, name string) ([]AgentDefinition, error)
	// GetAgent fetches one definition by ID. Returns nil if the definition
	// no longer exists.
	GetAgent(ctx context.Context, id string) (*AgentDefinition, error)
	CreateAgent(ctx context.Context, p CreateAgentParams) (*AgentDefinition, error)
	UpdateAgent(ctx context.Context, id string, p UpdateAgentParams) (*AgentDefinition, error)
	DeleteAgent(ctx context.Context, id string) error
	RunAgent(ctx context.Context, p RunParams) (*RunResult, error)
}

// SearchHandle is a live, verified search capability. A nil handle means the
// capability is not available in this environment.
type SearchHandle struct {
	// Name identifies the capability for logs and errors.
	Name string
	// Endpoint is the grounding backend URL, set for web search.
	Endpoint string
	// VectorStoreIDs are the verified document stores, set for document
	// search.
	VectorStoreIDs []string
}

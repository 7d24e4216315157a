// Package agent implements the specialized research agents. Each agent
// wraps one remote definition: it rewrites the incoming action through an
// optional preprocess hook, runs the definition with its tool catalog
// attached, and records both sides of the exchange in the message log.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/internal/capability"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/internal/tools"
	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// Preprocessor rewrites an action before dispatch. Implementations must be
// pure text transforms with no side effects.
type Preprocessor func(action string) string

// contextWindow bounds how many prior plan messages are folded into the
// run input.
const contextWindow = 10

// Agent binds a remote definition to one session's tools and message log.
type Agent struct {
	Type      models.AgentType
	Name      string
	SessionID string
	UserID    string
	// DefinitionID is the remote definition backing this agent. Empty for
	// local-only variants (the human agent), which never round-trip to the
	// execution backend.
	DefinitionID string
	Instructions string

	client     capability.ExecutionClient
	registry   *tools.Registry
	messages   store.MessageStore
	preprocess Preprocessor
	tokens     *capability.TokenTracker
	log        zerolog.Logger
}

// Params carries everything the factory wires into an agent.
type Params struct {
	Type         models.AgentType
	SessionID    string
	UserID       string
	DefinitionID string
	Instructions string
	Client       capability.ExecutionClient
	Registry     *tools.Registry
	Messages     store.MessageStore
	Preprocess   Preprocessor
	// Tokens, when set, accumulates the usage reported by this agent's runs.
	Tokens *capability.TokenTracker
}

// New constructs an agent from wired parameters.
func New(p Params) *Agent {
	return &Agent{
		Type:         p.Type,
		Name:         p.Type.String(),
		SessionID:    p.SessionID,
		UserID:       p.UserID,
		DefinitionID: p.DefinitionID,
		Instructions: p.Instructions,
		client:       p.Client,
		registry:     p.Registry,
		messages:     p.Messages,
		preprocess:   p.Preprocess,
		tokens:       p.Tokens,
		log: logx.Component("agent").With().
			Str("agent", p.Type.String()).
			Str("session_id", p.SessionID).Logger(),
	}
}

// Registry exposes the agent's tool catalog.
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// HandleActionRequest executes one step's action. The request is recorded
// as a human-sourced message, the remote definition runs with the plan's
// recent conversation as context, and the reply is recorded under this
// agent's name. A remote failure is returned to the caller; nothing is
// marked failed here.
func (a *Agent) HandleActionRequest(ctx context.Context, req *models.ActionRequest) (*models.ActionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil action request")
	}
	action := req.Action
	if a.preprocess != nil {
		action = a.preprocess(action)
	}

	// Snapshot the history before recording this request, so the run input
	// does not carry the current action twice.
	input := action
	if a.DefinitionID != "" {
		input = a.buildInput(req.PlanID, action)
	}
	if err := a.appendMessage(req.PlanID, req.StepID, action, models.AgentTypeHuman); err != nil {
		return nil, fmt.Errorf("record action request: %w", err)
	}

	result, err := a.execute(ctx, input, action)
	if err != nil {
		a.log.Error().Err(err).Str("step_id", req.StepID).Msg("action failed")
		return nil, err
	}

	if err := a.appendMessage(req.PlanID, req.StepID, result, a.Type); err != nil {
		return nil, fmt.Errorf("record action response: %w", err)
	}
	a.log.Info().Str("step_id", req.StepID).Int("result_len", len(result)).Msg("action completed")

	return &models.ActionResponse{
		StepID:    req.StepID,
		PlanID:    req.PlanID,
		SessionID: req.SessionID,
		Result:    result,
		Status:    models.StepStatusCompleted,
	}, nil
}

func (a *Agent) execute(ctx context.Context, input, action string) (string, error) {
	if a.DefinitionID == "" {
		// Local-only agent: acknowledge without a remote round-trip.
		return fmt.Sprintf("%s acknowledged: %s", a.Name, action), nil
	}

	var handler capability.ToolHandler
	if a.registry != nil {
		handler = a.registry
	}
	res, err := a.client.RunAgent(ctx, capability.RunParams{
		AgentID: a.DefinitionID,
		Input:   input,
		Handler: handler,
	})
	if err != nil {
		return "", fmt.Errorf("run %s: %w", a.Name, err)
	}
	a.tokens.Record(a.Name, res.PromptTokens, res.CompletionTokens)
	return res.Output, nil
}

// buildInput folds the tail of the plan's conversation into the action so
// the remote run sees what earlier steps produced.
func (a *Agent) buildInput(planID, action string) string {
	if a.messages == nil || planID == "" {
		return action
	}
	history, err := a.messages.ListMessages(planID)
	if err != nil {
		a.log.Warn().Err(err).Msg("loading conversation history")
		return action
	}
	if len(history) == 0 {
		return action
	}
	if len(history) > contextWindow {
		history = history[len(history)-contextWindow:]
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "[%s] %s\n", m.Source, m.Content)
	}
	b.WriteString("\nCurrent task:\n")
	b.WriteString(action)
	return b.String()
}

func (a *Agent) appendMessage(planID, stepID, content string, source models.AgentType) error {
	if a.messages == nil {
		return nil
	}
	return a.messages.AppendMessage(
		models.NewAgentMessage(a.SessionID, a.UserID, planID, stepID, content, source))
}

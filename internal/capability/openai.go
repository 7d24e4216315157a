package capability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/pkg/logx"
)

const defaultModel = "gpt-4o"

// OpenAIClient implements ExecutionClient against the OpenAI Assistants API.
type OpenAIClient struct {
	inner openai.Client
	model string
	log   zerolog.Logger
}

// ClientConfig contains configuration for creating a new OpenAIClient.
type ClientConfig struct {
	// APIKey is the OpenAI API key. If empty, uses OPENAI_API_KEY env var.
	APIKey string
	// BaseURL overrides the API endpoint, for Azure OpenAI or compatible
	// gateways.
	BaseURL string
	// Model is the default model for new agent definitions.
	Model string
}

// NewOpenAIClient creates a new execution client.
func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")))
	}
	inner := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OpenAIClient{
		inner: inner,
		model: model,
		log:   logx.Component("execution"),
	}, nil
}

// Model returns the configured default model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// SDK returns the underlying OpenAI client for sibling capabilities that
// share the connection, like document search.
func (c *OpenAIClient) SDK() *openai.Client {
	return &c.inner
}

// ListAgentsByName returns every assistant whose name matches exactly. The
// Assistants API has no name filter, so this walks the full list.
func (c *OpenAIClient) ListAgentsByName(ctx context.Context, name string) ([]AgentDefinition, error) {
	var defs []AgentDefinition
	iter := c.inner.Beta.Assistants.ListAutoPaging(ctx, openai.BetaAssistantListParams{
		Limit: openai.Int(100),
	})
	for iter.Next() {
		a := iter.Current()
		if a.Name != name {
			continue
		}
		defs = append(defs, definitionFromAssistant(&a))
	}
	if err := iter.Err(); err != nil {
		return nil, &RemoteDefinitionError{Op: "list", Name: name, Err: err}
	}
	return defs, nil
}

// GetAgent fetches one assistant by ID. Returns nil if it no longer exists.
func (c *OpenAIClient) GetAgent(ctx context.Context, id string) (*AgentDefinition, error) {
	a, err := c.inner.Beta.Assistants.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &RemoteDefinitionError{Op: "get", Name: id, Err: err}
	}
	def := definitionFromAssistant(a)
	return &def, nil
}

// CreateAgent creates a new assistant definition.
func (c *OpenAIClient) CreateAgent(ctx context.Context, p CreateAgentParams) (*AgentDefinition, error) {
	model := p.Model
	if model == "" {
		model = c.model
	}

	params := openai.BetaAssistantNewParams{
		Model:        shared.ChatModel(model),
		Name:         openai.String(p.Name),
		Instructions: openai.String(p.Instructions),
		Temperature:  openai.Float(p.Temperature),
		Tools:        p.Tools,
	}
	if len(p.Metadata) > 0 {
		params.Metadata = shared.Metadata(p.Metadata)
	}
	if p.ResponseFormat != nil {
		params.ResponseFormat = *p.ResponseFormat
	}
	if p.FileSearch {
		params.Tools = append(params.Tools, openai.AssistantToolUnionParam{
			OfFileSearch: &openai.FileSearchToolParam{},
		})
		params.ToolResources = openai.BetaAssistantNewParamsToolResources{
			FileSearch: openai.BetaAssistantNewParamsToolResourcesFileSearch{
				VectorStoreIDs: p.VectorStoreIDs,
			},
		}
	}

	a, err := c.inner.Beta.Assistants.New(ctx, params)
	if err != nil {
		return nil, &RemoteDefinitionError{Op: "create", Name: p.Name, Err: err}
	}
	c.log.Debug().Str("name", p.Name).Str("id", a.ID).Msg("created agent definition")

	def := definitionFromAssistant(a)
	return &def, nil
}

// UpdateAgent revises an assistant definition in place. Zero-valued params
// fields are left unchanged.
func (c *OpenAIClient) UpdateAgent(ctx context.Context, id string, p UpdateAgentParams) (*AgentDefinition, error) {
	params := openai.BetaAssistantUpdateParams{}
	if p.Model != "" {
		params.Model = openai.BetaAssistantUpdateParamsModel(p.Model)
	}
	if p.Instructions != "" {
		params.Instructions = openai.String(p.Instructions)
	}
	if p.Temperature != nil {
		params.Temperature = openai.Float(*p.Temperature)
	}
	if p.Tools != nil {
		params.Tools = p.Tools
	}
	if p.VectorStoreIDs != nil {
		params.ToolResources = openai.BetaAssistantUpdateParamsToolResources{
			FileSearch: openai.BetaAssistantUpdateParamsToolResourcesFileSearch{
				VectorStoreIDs: p.VectorStoreIDs,
			},
		}
	}

	a, err := c.inner.Beta.Assistants.Update(ctx, id, params)
	if err != nil {
		return nil, &RemoteDefinitionError{Op: "update", Name: id, Err: err}
	}
	c.log.Debug().Str("id", id).Msg("updated agent definition")

	def := definitionFromAssistant(a)
	return &def, nil
}

// DeleteAgent removes an assistant definition. Deleting a definition that is
// already gone is not an error.
func (c *OpenAIClient) DeleteAgent(ctx context.Context, id string) error {
	_, err := c.inner.Beta.Assistants.Delete(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return &RemoteDefinitionError{Op: "delete", Name: id, Err: err}
	}
	c.log.Debug().Str("id", id).Msg("deleted agent definition")
	return nil
}

// RunAgent runs an agent to completion on a fresh thread, resolving tool
// calls through the params handler as the run requests them.
func (c *OpenAIClient) RunAgent(ctx context.Context, p RunParams) (*RunResult, error) {
	thread, err := c.inner.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	_, err = c.inner.Beta.Threads.Messages.New(ctx, thread.ID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(p.Input),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("post input message: %w", err)
	}

	runParams := openai.BetaThreadRunNewParams{AssistantID: p.AgentID}
	if p.Instructions != "" {
		runParams.AdditionalInstructions = openai.String(p.Instructions)
	}

	run, err := c.inner.Beta.Threads.Runs.NewAndPoll(ctx, thread.ID, runParams, p.PollIntervalMs)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	for run.Status == openai.RunStatusRequiresAction {
		run, err = c.resolveToolCalls(ctx, thread.ID, run, p)
		if err != nil {
			return nil, err
		}
	}

	if run.Status != openai.RunStatusCompleted {
		if run.LastError.Message != "" {
			return nil, fmt.Errorf("run %s ended %s: %s", run.ID, run.Status, run.LastError.Message)
		}
		return nil, fmt.Errorf("run %s ended %s", run.ID, run.Status)
	}

	output, err := c.assistantText(ctx, thread.ID, run.ID)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("agent_id", p.AgentID).
		Str("run_id", run.ID).
		Int64("prompt_tokens", run.Usage.PromptTokens).
		Int64("completion_tokens", run.Usage.CompletionTokens).
		Msg("run completed")

	return &RunResult{
		Output:           output,
		RunID:            run.ID,
		ThreadID:         thread.ID,
		PromptTokens:     run.Usage.PromptTokens,
		CompletionTokens: run.Usage.CompletionTokens,
	}, nil
}

// resolveToolCalls answers one requires_action pause: every requested tool
// call gets an output, failures included, so the run can always proceed.
func (c *OpenAIClient) resolveToolCalls(ctx context.Context, threadID string, run *openai.Run, p RunParams) (*openai.Run, error) {
	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, 0, len(calls))
	for _, call := range calls {
		out := c.runToolCall(ctx, p.Handler, call.Function.Name, call.Function.Arguments)
		outputs = append(outputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(call.ID),
			Output:     openai.String(out),
		})
	}

	next, err := c.inner.Beta.Threads.Runs.SubmitToolOutputsAndPoll(ctx, threadID, run.ID,
		openai.BetaThreadRunSubmitToolOutputsParams{ToolOutputs: outputs}, p.PollIntervalMs)
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs: %w", err)
	}
	return next, nil
}

func (c *OpenAIClient) runToolCall(ctx context.Context, handler ToolHandler, name, arguments string) string {
	if handler == nil {
		c.log.Warn().Str("tool", name).Msg("run requested a tool but no handler is registered")
		return `{"error": "tool is not available"}`
	}
	out, err := handler.HandleToolCall(ctx, name, arguments)
	if err != nil {
		c.log.Warn().Err(err).Str("tool", name).Msg("tool call failed")
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return out
}

// assistantText returns the text of the newest assistant message the run
// produced.
func (c *OpenAIClient) assistantText(ctx context.Context, threadID, runID string) (string, error) {
	page, err := c.inner.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		RunID: openai.String(runID),
	})
	if err != nil {
		return "", fmt.Errorf("list run messages: %w", err)
	}

	var sb strings.Builder
	for _, msg := range page.Data {
		if msg.Role != openai.MessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" {
				sb.WriteString(part.Text.Value)
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("run %s produced no assistant text", runID)
	}
	return sb.String(), nil
}

// ResponseJSONSchema builds a strict JSON-schema response format for
// definitions that must reply in a machine-parseable shape.
func ResponseJSONSchema(name string, schema map[string]any) *openai.AssistantResponseFormatOptionUnionParam {
	return &openai.AssistantResponseFormatOptionUnionParam{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   name,
				Schema: schema,
			},
		},
	}
}

func definitionFromAssistant(a *openai.Assistant) AgentDefinition {
	def := AgentDefinition{
		ID:             a.ID,
		Name:           a.Name,
		Model:          a.Model,
		Instructions:   a.Instructions,
		Temperature:    a.Temperature,
		Metadata:       map[string]string(a.Metadata),
		VectorStoreIDs: a.ToolResources.FileSearch.VectorStoreIDs,
		CreatedAt:      time.Unix(a.CreatedAt, 0).UTC(),
	}
	for _, tool := range a.Tools {
		def.ToolTypes = append(def.ToolTypes, string(tool.Type))
	}
	return def
}

func isNotFound(err error) bool {
	var apierr *openai.Error
	return errors.As(err, &apierr) && apierr.StatusCode == http.StatusNotFound
}

// Compile-time verification.
var _ ExecutionClient = (*OpenAIClient)(nil)

// Package tools holds the function-tool catalogs the specialized agents
// expose to the execution backend. Each catalog is a static descriptor
// table: the schema rendered to the backend and the Go function invoked
// when the backend calls back are declared side by side, so adding a tool
// is one table entry with no reflection involved.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/pkg/logx"
)

// Args is the decoded argument object of a single tool call.
type Args map[string]any

// String returns the named argument as a string, or "" when absent or not
// a string. Tool inputs arrive as JSON from the model, so anything typed
// is best-effort.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// StringOr returns the named argument, or fallback when it is absent or
// empty.
func (a Args) StringOr(key, fallback string) string {
	if s := a.String(key); s != "" {
		return s
	}
	return fallback
}

// Object returns the named argument as a nested object, or nil.
func (a Args) Object(key string) map[string]any {
	m, _ := a[key].(map[string]any)
	return m
}

// Param describes one input of a tool, in JSON Schema terms.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Tool pairs the schema advertised to the execution backend with the
// function run when the backend requests the call.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Run         func(ctx context.Context, args Args) (string, error)
}

// Registry dispatches tool calls by name for one agent's catalog. It
// satisfies the execution client's tool handler contract.
type Registry struct {
	tools map[string]Tool
	log   zerolog.Logger
}

// NewRegistry builds a registry over the given catalog. Duplicate names
// keep the last entry.
func NewRegistry(catalog []Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool, len(catalog)),
		log:   logx.Component("tools"),
	}
	for _, t := range catalog {
		r.tools[t.Name] = t
	}
	return r
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleToolCall decodes the JSON arguments and runs the named tool.
// Unknown names and malformed arguments are errors; the caller decides
// how to report them to the backend.
func (r *Registry) HandleToolCall(ctx context.Context, name, arguments string) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	args := Args{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("decode arguments for %s: %w", name, err)
		}
	}
	r.log.Debug().Str("tool", name).Msg("running tool call")
	out, err := tool.Run(ctx, args)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", name, err)
	}
	return out, nil
}

// Definitions renders a catalog as function-tool schemas for the
// execution backend.
func Definitions(catalog []Tool) []openai.AssistantToolUnionParam {
	defs := make([]openai.AssistantToolUnionParam, 0, len(catalog))
	for _, t := range catalog {
		props := make(map[string]any, len(t.Params))
		required := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			props[p.Name] = map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		defs = append(defs, openai.AssistantToolUnionParam{
			OfFunction: &openai.FunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters: shared.FunctionParameters{
						"type":       "object",
						"properties": props,
						"required":   required,
					},
				},
			},
		})
	}
	return defs
}

// Package factory builds and caches the per-session agent roster. One
// factory serves every session: construction is deduplicated per
// (session, type), successful builds are cached until the session is
// cleared, and the web and enterprise paths refuse to produce an agent
// whose search capability cannot be verified.
package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kpenrose/finscope/internal/agent"
	"github.com/kpenrose/finscope/internal/capability"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/internal/tools"
	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// ErrUnknownAgentType marks a creation request for an agent type with no
// registered profile.
var ErrUnknownAgentType = errors.New("unknown agent type")

// fileSearchToolType is the backend's tool type for document search.
const fileSearchToolType = "file_search"

// Store is the slice of persistence the factory wires into agents.
type Store interface {
	store.PlanStore
	store.StepStore
	store.MessageStore
}

// SearchAcquirer yields a verified search handle, or nil when the
// capability is unavailable.
type SearchAcquirer interface {
	Acquire(ctx context.Context) *capability.SearchHandle
}

// Options carries the factory's collaborators.
type Options struct {
	Client         capability.ExecutionClient
	Store          Store
	GroundedSearch SearchAcquirer
	DocumentSearch SearchAcquirer
	Overrides      map[models.AgentType]agent.Override
	Model          string
	Temperature    float64
	Tokens         *capability.TokenTracker
}

// Factory constructs agents on demand and caches them per session.
type Factory struct {
	client      capability.ExecutionClient
	store       Store
	grounded    SearchAcquirer
	documents   SearchAcquirer
	overrides   map[models.AgentType]agent.Override
	model       string
	temperature float64
	tokens      *capability.TokenTracker
	transcripts *tools.TranscriptCache

	mu    sync.RWMutex
	cache map[string]map[models.AgentType]*agent.Agent

	flight singleflight.Group
	log    zerolog.Logger
}

// New creates a factory.
func New(o Options) *Factory {
	return &Factory{
		client:      o.Client,
		store:       o.Store,
		grounded:    o.GroundedSearch,
		documents:   o.DocumentSearch,
		overrides:   o.Overrides,
		model:       o.Model,
		temperature: o.Temperature,
		tokens:      o.Tokens,
		transcripts: tools.NewTranscriptCache(),
		cache:       make(map[string]map[models.AgentType]*agent.Agent),
		log:         logx.Component("factory"),
	}
}

// CreateAgent returns the session's agent of the given type, constructing
// it on first use. Repeated calls return the same instance; concurrent
// first calls share one construction. Failed constructions are not cached,
// so the next call retries from scratch.
func (f *Factory) CreateAgent(ctx context.Context, t models.AgentType, sessionID, userID string) (*agent.Agent, error) {
	if a := f.cached(sessionID, t); a != nil {
		return a, nil
	}

	key := sessionID + "/" + string(t)
	v, err, _ := f.flight.Do(key, func() (any, error) {
		// A racing call may have finished while we waited for the flight.
		if a := f.cached(sessionID, t); a != nil {
			return a, nil
		}
		a, err := f.buildAgent(ctx, t, sessionID, userID)
		if err != nil {
			return nil, err
		}
		f.cacheAgent(sessionID, t, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*agent.Agent), nil
}

// CachedAgent returns the session's agent of the given type without
// constructing one. Step dispatch resolves through this: steps only run
// against agents built before the plan started.
func (f *Factory) CachedAgent(sessionID string, t models.AgentType) (*agent.Agent, bool) {
	a := f.cached(sessionID, t)
	return a, a != nil
}

// ClearCache drops a session's cached agents. The next CreateAgent for
// that session builds fresh instances.
func (f *Factory) ClearCache(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, sessionID)
}

// ClearAllCaches drops every session's cached agents.
func (f *Factory) ClearAllCaches() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]map[models.AgentType]*agent.Agent)
}

func (f *Factory) cached(sessionID string, t models.AgentType) *agent.Agent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cache[sessionID][t]
}

func (f *Factory) cacheAgent(sessionID string, t models.AgentType, a *agent.Agent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.cache[sessionID]
	if !ok {
		session = make(map[models.AgentType]*agent.Agent)
		f.cache[sessionID] = session
	}
	session[t] = a
}

func (f *Factory) buildAgent(ctx context.Context, t models.AgentType, sessionID, userID string) (*agent.Agent, error) {
	profile, ok := agent.ProfileFor(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgentType, t)
	}
	if o, ok := f.overrides[t]; ok {
		profile = profile.Apply(o)
	}

	params := agent.Params{
		Type:         t,
		SessionID:    sessionID,
		UserID:       userID,
		Instructions: profile.Instructions,
		Client:       f.client,
		Messages:     f.store,
		Preprocess:   profile.Preprocess,
		Tokens:       f.tokens,
	}
	if catalog := tools.ForType(t, sessionID, f.transcripts); len(catalog) > 0 {
		params.Registry = tools.NewRegistry(catalog)
	}

	if !profile.Remote {
		f.log.Debug().Str("agent", string(t)).Str("session_id", sessionID).Msg("built local agent")
		return agent.New(params), nil
	}

	var def *capability.AgentDefinition
	var err error
	switch {
	case profile.RequiresDocumentSearch:
		def, err = f.enterpriseDefinition(ctx, t, sessionID, profile)
	case profile.WantsWebSearch:
		def, err = f.webDefinition(ctx, t, sessionID, profile)
	default:
		def, err = f.ensureDefinition(ctx, t, sessionID, profile)
	}
	if err != nil {
		return nil, err
	}

	params.DefinitionID = def.ID
	f.log.Info().
		Str("agent", string(t)).
		Str("session_id", sessionID).
		Str("definition_id", def.ID).
		Msg("built agent")
	return agent.New(params), nil
}

// ensureDefinition finds the session's remote definition for the type by
// name, or creates it. Losing a duplicate-create race is recovered by
// re-listing once and adopting the winner's definition.
func (f *Factory) ensureDefinition(ctx context.Context, t models.AgentType, sessionID string, profile agent.Profile) (*capability.AgentDefinition, error) {
	name := definitionName(t, sessionID)

	def, err := f.findDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return def, nil
	}

	created, err := f.client.CreateAgent(ctx, f.createParams(t, sessionID, profile))
	if err != nil {
		if winner, ferr := f.findDefinition(ctx, name); ferr == nil && winner != nil {
			f.log.Debug().Str("name", name).Msg("adopted definition from a concurrent create")
			return winner, nil
		}
		return nil, err
	}
	return created, nil
}

// findDefinition resolves a definition by exact name, re-fetched by ID so
// callers see its current shape rather than a stale list view. Returns nil
// when no definition exists.
func (f *Factory) findDefinition(ctx context.Context, name string) (*capability.AgentDefinition, error) {
	defs, err := f.client.ListAgentsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, nil
	}
	return f.client.GetAgent(ctx, defs[0].ID)
}

func (f *Factory) createParams(t models.AgentType, sessionID string, profile agent.Profile) capability.CreateAgentParams {
	p := capability.CreateAgentParams{
		Name:         definitionName(t, sessionID),
		Model:        f.model,
		Instructions: profile.Instructions,
		Temperature:  f.temperature,
		Metadata: map[string]string{
			"session_id": sessionID,
			"agent_type": string(t),
		},
		Tools: tools.Definitions(tools.ForType(t, sessionID, f.transcripts)),
	}
	if profile.ResponseSchema != nil {
		p.ResponseFormat = capability.ResponseJSONSchema(profile.ResponseSchemaName, profile.ResponseSchema)
	}
	return p
}

// webDefinition builds the grounded web research definition. The grounding
// capability must be live: a nil handle fails the construction rather than
// producing an agent that answers from memory.
func (f *Factory) webDefinition(ctx context.Context, t models.AgentType, sessionID string, profile agent.Profile) (*capability.AgentDefinition, error) {
	handle := acquire(ctx, f.grounded)
	if handle == nil {
		return nil, &capability.CapabilityUnavailableError{
			Capability: "grounded search",
			AgentName:  string(t),
		}
	}
	f.log.Debug().Str("endpoint", handle.Endpoint).Msg("grounded search acquired")

	def, err := f.ensureDefinition(ctx, t, sessionID, profile)
	if err != nil {
		return nil, err
	}

	// Re-register the research tools on every construction, then confirm
	// the registration by re-fetching the definition.
	updated, err := f.client.UpdateAgent(ctx, def.ID, capability.UpdateAgentParams{
		Tools: tools.Definitions(tools.ForType(t, sessionID, f.transcripts)),
	})
	if err != nil {
		return nil, err
	}
	fresh, err := f.client.GetAgent(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil || !fresh.HasToolType("function") {
		return nil, &capability.CapabilityUnavailableError{
			Capability: "grounded search",
			AgentName:  string(t),
		}
	}
	return fresh, nil
}

// enterpriseDefinition builds the internal-document definition. Document
// search must be live, and an existing definition that lacks the
// file_search tool is deleted and recreated: a compliance agent with no
// document access must never survive from an earlier deployment.
func (f *Factory) enterpriseDefinition(ctx context.Context, t models.AgentType, sessionID string, profile agent.Profile) (*capability.AgentDefinition, error) {
	handle := acquire(ctx, f.documents)
	if handle == nil {
		return nil, &capability.CapabilityUnavailableError{
			Capability: "document search",
			AgentName:  string(t),
		}
	}

	name := definitionName(t, sessionID)
	def, err := f.findDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	if def != nil && !def.HasToolType(fileSearchToolType) {
		f.log.Warn().Str("definition_id", def.ID).Msg("replacing stale definition without document search")
		if err := f.client.DeleteAgent(ctx, def.ID); err != nil {
			return nil, err
		}
		def = nil
	}

	if def == nil {
		params := f.createParams(t, sessionID, profile)
		params.FileSearch = true
		params.VectorStoreIDs = handle.VectorStoreIDs
		def, err = f.client.CreateAgent(ctx, params)
		if err != nil {
			winner, ferr := f.findDefinition(ctx, name)
			if ferr != nil || winner == nil || !winner.HasToolType(fileSearchToolType) {
				return nil, err
			}
			def = winner
		}
	} else {
		// Keep the store binding current on the surviving definition.
		def, err = f.client.UpdateAgent(ctx, def.ID, capability.UpdateAgentParams{
			VectorStoreIDs: handle.VectorStoreIDs,
		})
		if err != nil {
			return nil, err
		}
	}

	fresh, err := f.client.GetAgent(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil || !fresh.HasToolType(fileSearchToolType) {
		return nil, &capability.CapabilityUnavailableError{
			Capability: "document search",
			AgentName:  string(t),
		}
	}
	return fresh, nil
}

// definitionName scopes remote definitions per session, so one session's
// agents never execute against another's.
func definitionName(t models.AgentType, sessionID string) string {
	return fmt.Sprintf("%s-%s", t, sessionID)
}

func acquire(ctx context.Context, s SearchAcquirer) *capability.SearchHandle {
	if s == nil {
		return nil
	}
	return s.Acquire(ctx)
}

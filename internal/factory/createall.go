package factory

import (
	"context"
	"fmt"

	"github.com/kpenrose/finscope/internal/agent"
	"github.com/kpenrose/finscope/pkg/models"
)

// CreateAllAgents builds a session's complete roster in three phases: every
// ordinary agent in stable order, then the planner over that roster, then
// the group chat manager over roster plus planner. The ordering is
// structural: the manager constructor refuses an incomplete roster, so a
// manager can never exist before the agents it routes to.
func (f *Factory) CreateAllAgents(ctx context.Context, sessionID, userID string) (*agent.Manager, error) {
	ordinary := models.OrdinaryAgentTypes()
	roster := make(map[models.AgentType]*agent.Agent, len(ordinary))
	for _, t := range ordinary {
		a, err := f.CreateAgent(ctx, t, sessionID, userID)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", t, err)
		}
		roster[t] = a
	}

	planner, err := f.CreatePlanner(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	base, err := f.CreateAgent(ctx, models.AgentTypeGroupChatManager, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", models.AgentTypeGroupChatManager, err)
	}
	manager, err := agent.NewManager(base, roster, planner)
	if err != nil {
		return nil, err
	}

	f.log.Info().Str("session_id", sessionID).Int("agents", len(roster)).Msg("session roster ready")
	return manager, nil
}

// CreatePlanner builds the session's planning agent bound to the plan and
// step stores. The underlying agent is cached like any other; the wrapper
// is constructed per call.
func (f *Factory) CreatePlanner(ctx context.Context, sessionID, userID string) (*agent.Planner, error) {
	base, err := f.CreateAgent(ctx, models.AgentTypePlanner, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", models.AgentTypePlanner, err)
	}
	return agent.NewPlanner(base, f.store, f.store), nil
}

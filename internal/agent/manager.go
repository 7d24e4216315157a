package agent

import (
	"fmt"

	"github.com/kpenrose/finscope/pkg/models"
)

// Manager is the group-chat coordinator. It is constructed last, from the
// complete roster plus the planner, so a manager can never exist before
// the agents it routes to.
type Manager struct {
	*Agent
	roster  map[models.AgentType]*Agent
	planner *Planner
}

// NewManager wraps the manager agent around the full roster. Construction
// fails if any ordinary agent or the planner is missing.
func NewManager(base *Agent, roster map[models.AgentType]*Agent, planner *Planner) (*Manager, error) {
	if planner == nil {
		return nil, fmt.Errorf("manager requires the planner")
	}
	for _, t := range models.OrdinaryAgentTypes() {
		if roster[t] == nil {
			return nil, fmt.Errorf("manager requires a complete roster: missing %s", t)
		}
	}
	own := make(map[models.AgentType]*Agent, len(roster))
	for t, a := range roster {
		own[t] = a
	}
	return &Manager{Agent: base, roster: own, planner: planner}, nil
}

// AgentFor returns the roster agent for a type.
func (m *Manager) AgentFor(t models.AgentType) (*Agent, bool) {
	a, ok := m.roster[t]
	return a, ok
}

// Planner returns the planning agent.
func (m *Manager) Planner() *Planner {
	return m.planner
}

// Roster returns the roster types in construction order.
func (m *Manager) Roster() []models.AgentType {
	var out []models.AgentType
	for _, t := range models.OrdinaryAgentTypes() {
		if _, ok := m.roster[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Package store provides SQLite-based persistence for plans, steps, and the
// agent message log.
package store

import (
	"io"

	"github.com/kpenrose/finscope/pkg/models"
)

// PlanStore handles plan-related persistence operations.
type PlanStore interface {
	CreatePlan(p *models.Plan) error
	GetPlan(id string) (*models.Plan, error)
	UpdatePlan(p *models.Plan) error
	ListPlans(sessionID string) ([]*models.Plan, error)
	GetPlanWithSteps(id string) (*models.PlanWithSteps, error)
}

// StepStore handles step-related persistence operations.
type StepStore interface {
	CreateStep(s *models.Step) error
	CreateSteps(steps []*models.Step) error
	GetStep(id string) (*models.Step, error)
	UpdateStep(s *models.Step) error
	ListSteps(planID string) ([]*models.Step, error)
	ListStepsByStatus(planID string, status models.StepStatus) ([]*models.Step, error)
}

// MessageStore handles the append-only agent message log.
type MessageStore interface {
	AppendMessage(m *models.AgentMessage) error
	ListMessages(planID string) ([]*models.AgentMessage, error)
	ListSessionMessages(sessionID string) ([]*models.AgentMessage, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for plan persistence.
// This interface allows the orchestrator to work with any backend without
// depending on the concrete SQLite implementation.
// It composes focused sub-interfaces for better modularity.
type Store interface {
	io.Closer
	Migrator
	PlanStore
	StepStore
	MessageStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ PlanStore    = (*DB)(nil)
	_ StepStore    = (*DB)(nil)
	_ MessageStore = (*DB)(nil)
)

package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// InterruptedPlan contains information about an interrupted plan detected on
// startup.
type InterruptedPlan struct {
	PlanID         string
	SessionID      string
	Goal           string
	StartedAt      time.Time
	ExecutingSteps int
	AwaitingSteps  int
}

// RecoveryManager handles detection and recovery of plans whose run was
// interrupted, leaving steps stuck in executing.
type RecoveryManager struct {
	db  *DB
	log zerolog.Logger
}

// NewRecoveryManager creates a new RecoveryManager with the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db, log: logx.Component("recovery")}
}

// CheckForInterrupted detects an interrupted plan on startup. A plan counts
// as interrupted when it is still in_progress and has at least one step in
// executing, which cannot survive a process restart.
// Returns nil if no interrupted plan is found.
func (rm *RecoveryManager) CheckForInterrupted() (*InterruptedPlan, error) {
	plans, err := rm.db.ListPlans("")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	for _, p := range plans {
		if p.Status != models.PlanStatusInProgress {
			continue
		}

		steps, err := rm.db.ListSteps(p.ID)
		if err != nil {
			return nil, fmt.Errorf("list steps: %w", err)
		}

		executing, awaiting := 0, 0
		for _, s := range steps {
			switch s.Status {
			case models.StepStatusExecuting:
				executing++
			case models.StepStatusAwaitingFeedback:
				awaiting++
			}
		}
		if executing == 0 {
			continue
		}

		return &InterruptedPlan{
			PlanID:         p.ID,
			SessionID:      p.SessionID,
			Goal:           p.Goal,
			StartedAt:      p.CreatedAt,
			ExecutingSteps: executing,
			AwaitingSteps:  awaiting,
		}, nil
	}

	return nil, nil
}

// Resume prepares an interrupted plan for re-dispatch. Steps stuck in
// executing never produced a result, so they are moved back to approved; the
// coordinator will dispatch them again on the next run. This write bypasses
// the step transition table, which has no backward edge out of executing.
func (rm *RecoveryManager) Resume(planID string) error {
	p, err := rm.db.GetPlan(planID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}

	steps, err := rm.db.ListStepsByStatus(planID, models.StepStatusExecuting)
	if err != nil {
		return fmt.Errorf("list executing steps: %w", err)
	}

	for _, s := range steps {
		s.Status = models.StepStatusApproved
		s.UpdatedAt = time.Now().UTC()
		if err := rm.db.UpdateStep(s); err != nil {
			return fmt.Errorf("reset step %s: %w", s.ID, err)
		}
		rm.log.Info().Str("step_id", s.ID).Msg("reset interrupted step to approved")
	}

	rm.log.Info().Str("plan_id", planID).Int("steps", len(steps)).Msg("plan resumed")
	return nil
}

// Clean abandons an interrupted plan. Steps stuck in executing are marked
// failed, and the plan itself is marked failed: abandonment ends the plan
// regardless of how many steps were still pending. This is the only write
// path that produces a failed plan.
func (rm *RecoveryManager) Clean(planID string) error {
	pws, err := rm.db.GetPlanWithSteps(planID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if pws == nil {
		return fmt.Errorf("plan %s not found", planID)
	}

	for _, s := range pws.Steps {
		if s.Status != models.StepStatusExecuting {
			continue
		}
		if err := s.MarkFailed("execution interrupted by shutdown"); err != nil {
			return fmt.Errorf("fail step %s: %w", s.ID, err)
		}
		if err := rm.db.UpdateStep(s); err != nil {
			return fmt.Errorf("update step %s: %w", s.ID, err)
		}
		rm.log.Info().Str("step_id", s.ID).Msg("marked interrupted step failed")
	}

	pws.RecomputeStatus()
	pws.Status = models.PlanStatusFailed
	if err := rm.db.UpdatePlan(&pws.Plan); err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	rm.log.Info().Str("plan_id", planID).Int("failed", pws.FailedSteps).Msg("plan abandoned")
	return nil
}

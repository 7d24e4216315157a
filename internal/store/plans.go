package store

import (
	"database/sql"
	"fmt"

	"github.com/kpenrose/finscope/pkg/models"
)

// Plan CRUD operations

// CreatePlan creates a new plan.
func (db *DB) CreatePlan(p *models.Plan) error {
	_, err := db.Exec(`
		INSERT INTO plans (id, session_id, user_id, goal, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.SessionID, p.UserID, p.Goal, string(p.Status), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan by ID.
func (db *DB) GetPlan(id string) (*models.Plan, error) {
	row := db.QueryRow(`
		SELECT id, session_id, user_id, goal, status, created_at, updated_at
		FROM plans WHERE id = ?
	`, id)

	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// UpdatePlan updates a plan.
func (db *DB) UpdatePlan(p *models.Plan) error {
	_, err := db.Exec(`
		UPDATE plans SET goal = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, p.Goal, string(p.Status), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

// ListPlans lists plans for a session, newest first. An empty session ID
// lists plans across all sessions.
func (db *DB) ListPlans(sessionID string) ([]*models.Plan, error) {
	var rows *sql.Rows
	var err error

	if sessionID != "" {
		rows, err = db.Query(`
			SELECT id, session_id, user_id, goal, status, created_at, updated_at
			FROM plans WHERE session_id = ? ORDER BY created_at DESC
		`, sessionID)
	} else {
		rows, err = db.Query(`
			SELECT id, session_id, user_id, goal, status, created_at, updated_at
			FROM plans ORDER BY created_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// GetPlanWithSteps retrieves a plan and its steps as the derived read model.
// The counters and aggregate status are recomputed from the steps on every
// read. Returns nil if the plan does not exist.
func (db *DB) GetPlanWithSteps(id string) (*models.PlanWithSteps, error) {
	p, err := db.GetPlan(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	steps, err := db.ListSteps(id)
	if err != nil {
		return nil, err
	}

	pws := &models.PlanWithSteps{Plan: *p, Steps: steps}
	pws.RecomputeStatus()
	return pws, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*models.Plan, error) {
	var p models.Plan
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Goal, &p.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = parseTime(createdAt)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return &p, nil
}

// Step CRUD operations

// CreateStep creates a new step at the end of its plan's order.
func (db *DB) CreateStep(s *models.Step) error {
	return db.Transaction(func(tx *sql.Tx) error {
		return insertStep(tx, s, -1)
	})
}

// CreateSteps creates a batch of steps in one transaction, preserving slice
// order as the plan's execution order.
func (db *DB) CreateSteps(steps []*models.Step) error {
	return db.Transaction(func(tx *sql.Tx) error {
		for _, s := range steps {
			if err := insertStep(tx, s, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

// insertStep inserts a step. A negative seq appends after the plan's current
// highest sequence.
func insertStep(tx *sql.Tx, s *models.Step, seq int) error {
	if seq < 0 {
		row := tx.QueryRow("SELECT COALESCE(MAX(seq)+1, 0) FROM steps WHERE plan_id = ?", s.PlanID)
		if err := row.Scan(&seq); err != nil {
			return fmt.Errorf("next step seq: %w", err)
		}
	}
	_, err := tx.Exec(`
		INSERT INTO steps (id, plan_id, session_id, user_id, seq, action, agent, status,
			human_approval_status, human_feedback, updated_action, result, error_message,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.PlanID, s.SessionID, s.UserID, seq, s.Action, string(s.Agent), string(s.Status),
		string(s.HumanApprovalStatus), nullableString(s.HumanFeedback), nullableString(s.UpdatedAction),
		nullableString(s.Result), nullableString(s.ErrorMessage),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID.
func (db *DB) GetStep(id string) (*models.Step, error) {
	row := db.QueryRow(`
		SELECT id, plan_id, session_id, user_id, action, agent, status,
			human_approval_status, human_feedback, updated_action, result, error_message,
			created_at, updated_at
		FROM steps WHERE id = ?
	`, id)

	s, err := scanStep(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get step: %w", err)
	}
	return s, nil
}

// UpdateStep updates a step.
func (db *DB) UpdateStep(s *models.Step) error {
	_, err := db.Exec(`
		UPDATE steps SET action = ?, status = ?, human_approval_status = ?,
			human_feedback = ?, updated_action = ?, result = ?, error_message = ?,
			updated_at = ?
		WHERE id = ?
	`, s.Action, string(s.Status), string(s.HumanApprovalStatus),
		nullableString(s.HumanFeedback), nullableString(s.UpdatedAction),
		nullableString(s.Result), nullableString(s.ErrorMessage),
		formatTime(s.UpdatedAt), s.ID)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	return nil
}

// ListSteps lists a plan's steps in execution order.
func (db *DB) ListSteps(planID string) ([]*models.Step, error) {
	rows, err := db.Query(`
		SELECT id, plan_id, session_id, user_id, action, agent, status,
			human_approval_status, human_feedback, updated_action, result, error_message,
			created_at, updated_at
		FROM steps WHERE plan_id = ? ORDER BY seq
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []*models.Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// ListStepsByStatus lists a plan's steps with the given status, in execution
// order.
func (db *DB) ListStepsByStatus(planID string, status models.StepStatus) ([]*models.Step, error) {
	rows, err := db.Query(`
		SELECT id, plan_id, session_id, user_id, action, agent, status,
			human_approval_status, human_feedback, updated_action, result, error_message,
			created_at, updated_at
		FROM steps WHERE plan_id = ? AND status = ? ORDER BY seq
	`, planID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list steps by status: %w", err)
	}
	defer rows.Close()

	var steps []*models.Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func scanStep(row scanner) (*models.Step, error) {
	var s models.Step
	var createdAt, updatedAt string
	var feedback, updatedAction, result, errMsg sql.NullString
	err := row.Scan(&s.ID, &s.PlanID, &s.SessionID, &s.UserID, &s.Action, &s.Agent, &s.Status,
		&s.HumanApprovalStatus, &feedback, &updatedAction, &result, &errMsg,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if feedback.Valid {
		s.HumanFeedback = feedback.String
	}
	if updatedAction.Valid {
		s.UpdatedAction = updatedAction.String
	}
	if result.Valid {
		s.Result = result.String
	}
	if errMsg.Valid {
		s.ErrorMessage = errMsg.String
	}
	s.CreatedAt, _ = parseTime(createdAt)
	s.UpdatedAt, _ = parseTime(updatedAt)
	return &s, nil
}

// Message operations

// AppendMessage appends a message to the audit log. Messages are immutable
// once written.
func (db *DB) AppendMessage(m *models.AgentMessage) error {
	_, err := db.Exec(`
		INSERT INTO messages (id, data_type, session_id, user_id, plan_id, step_id, content, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.DataType, m.SessionID, m.UserID, m.PlanID, nullableString(m.StepID),
		m.Content, string(m.Source), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages lists a plan's messages in append order.
func (db *DB) ListMessages(planID string) ([]*models.AgentMessage, error) {
	rows, err := db.Query(`
		SELECT id, data_type, session_id, user_id, plan_id, step_id, content, source, created_at
		FROM messages WHERE plan_id = ? ORDER BY seq
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListSessionMessages lists every message in a session in append order.
func (db *DB) ListSessionMessages(sessionID string) ([]*models.AgentMessage, error) {
	rows, err := db.Query(`
		SELECT id, data_type, session_id, user_id, plan_id, step_id, content, source, created_at
		FROM messages WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*models.AgentMessage, error) {
	var msgs []*models.AgentMessage
	for rows.Next() {
		var m models.AgentMessage
		var stepID sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.DataType, &m.SessionID, &m.UserID, &m.PlanID, &stepID,
			&m.Content, &m.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if stepID.Valid {
			m.StepID = stepID.String
		}
		m.CreatedAt, _ = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

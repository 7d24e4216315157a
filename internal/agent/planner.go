package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kpenrose/finscope/internal/capability"
	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/models"
)

// Planner decomposes a research goal into an ordered, agent-assigned plan
// and persists it. It is constructed after the ordinary roster so its
// prompt can name every agent it may route to.
type Planner struct {
	*Agent
	plans store.PlanStore
	steps store.StepStore
}

// NewPlanner wraps a constructed planner agent with the plan stores.
func NewPlanner(base *Agent, plans store.PlanStore, steps store.StepStore) *Planner {
	return &Planner{Agent: base, plans: plans, steps: steps}
}

// plannerResponse is the JSON shape the planner's remote definition is
// instructed to reply with.
type plannerResponse struct {
	InitialGoal               string        `json:"initial_goal"`
	Steps                     []plannerStep `json:"steps"`
	SummaryPlanAndSteps       string        `json:"summary_plan_and_steps"`
	HumanClarificationRequest string        `json:"human_clarification_request,omitempty"`
}

type plannerStep struct {
	Action string `json:"action"`
	Agent  string `json:"agent"`
}

// DecomposeGoal turns a goal into a persisted plan with ordered steps.
// When the remote reply cannot be parsed into at least one step, the plan
// falls back to a single generic step carrying the whole goal, so a bad
// decomposition never loses the user's request.
func (p *Planner) DecomposeGoal(ctx context.Context, goal string) (*models.Plan, []*models.Step, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, nil, fmt.Errorf("empty goal")
	}

	plan := models.NewPlan(p.SessionID, p.UserID, goal)

	var parsed plannerResponse
	res, err := p.client.RunAgent(ctx, capability.RunParams{
		AgentID: p.DefinitionID,
		Input:   p.decompositionPrompt(goal),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("decompose goal: %w", err)
	}
	if err := json.Unmarshal([]byte(stripFences(res.Output)), &parsed); err != nil {
		p.log.Warn().Err(err).Msg("planner reply is not valid JSON, falling back to a generic step")
		parsed = plannerResponse{}
	}

	steps := p.stepsFromResponse(plan, parsed)
	if err := p.plans.CreatePlan(plan); err != nil {
		return nil, nil, fmt.Errorf("persist plan: %w", err)
	}
	if err := p.steps.CreateSteps(steps); err != nil {
		return nil, nil, fmt.Errorf("persist steps: %w", err)
	}

	summary := parsed.SummaryPlanAndSteps
	if summary == "" {
		summary = fmt.Sprintf("Planned %d step(s) for goal: %s", len(steps), goal)
	}
	if err := p.appendMessage(plan.ID, "", summary, models.AgentTypePlanner); err != nil {
		return nil, nil, fmt.Errorf("record plan summary: %w", err)
	}

	p.log.Info().Str("plan_id", plan.ID).Int("steps", len(steps)).Msg("goal decomposed")
	return plan, steps, nil
}

// stepsFromResponse validates the parsed steps against the roster. Steps
// naming unknown or coordinating agents are routed to the generic agent;
// an empty decomposition becomes one generic step with the whole goal.
func (p *Planner) stepsFromResponse(plan *models.Plan, parsed plannerResponse) []*models.Step {
	var steps []*models.Step
	for _, ps := range parsed.Steps {
		action := strings.TrimSpace(ps.Action)
		if action == "" {
			continue
		}
		steps = append(steps, models.NewStep(plan.ID, plan.SessionID, plan.UserID, action, routeAgent(ps.Agent)))
	}
	if len(steps) == 0 {
		steps = []*models.Step{
			models.NewStep(plan.ID, plan.SessionID, plan.UserID, plan.Goal, models.AgentTypeGeneric),
		}
	}
	return steps
}

// routeAgent maps a planner-named agent onto an executable assignee.
func routeAgent(name string) models.AgentType {
	t, err := models.ParseAgentType(strings.TrimSpace(name))
	if err != nil {
		return models.AgentTypeGeneric
	}
	// The coordinating types never execute steps themselves.
	if t == models.AgentTypePlanner || t == models.AgentTypeGroupChatManager {
		return models.AgentTypeGeneric
	}
	return t
}

func (p *Planner) decompositionPrompt(goal string) string {
	return fmt.Sprintf(`Break the following financial research goal into an ordered list of steps.
Assign each step to exactly one agent from this roster:

%s
Rules:
- Use the agent names exactly as written above.
- Each step's action is one concrete instruction for its agent.
- Prefer specialists; use GenericAgent only when nothing else fits.
- Respond ONLY with JSON matching this schema, no prose around it:
{
  "initial_goal": "<the goal>",
  "steps": [{"action": "<instruction>", "agent": "<agent name>"}],
  "summary_plan_and_steps": "<one-paragraph summary>",
  "human_clarification_request": "<question for the user, or omit>"
}

Goal: %s`, RosterDescriptions(), goal)
}

// PlannerResponseSchema is the reply shape the planner's remote definition
// is constrained to. It mirrors plannerResponse field for field.
func PlannerResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"initial_goal": map[string]any{"type": "string"},
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"action": map[string]any{"type": "string"},
						"agent":  map[string]any{"type": "string"},
					},
					"required": []string{"action", "agent"},
				},
			},
			"summary_plan_and_steps":      map[string]any{"type": "string"},
			"human_clarification_request": map[string]any{"type": "string"},
		},
		"required": []string{"initial_goal", "steps", "summary_plan_and_steps"},
	}
}

// stripFences removes a wrapping markdown code fence, if present, so
// fenced JSON replies still parse.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

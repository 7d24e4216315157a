package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kpenrose/finscope/internal/store"
	"github.com/kpenrose/finscope/pkg/models"
)

func newTestPlanner(t *testing.T, client *fakeClient, db *store.DB) *Planner {
	t.Helper()
	base := newTestAgent(t, Params{
		Type:         models.AgentTypePlanner,
		DefinitionID: "def-planner",
		Client:       client,
		Messages:     db,
	})
	return NewPlanner(base, db, db)
}

const plannerReply = `{
	"initial_goal": "Evaluate MSFT as an investment",
	"steps": [
		{"action": "Pull company profile and news for MSFT", "agent": "CompanyAgent"},
		{"action": "Analyze the latest 10-K", "agent": "SecAgent"},
		{"action": "Produce a buy/sell/hold recommendation", "agent": "ForecasterAgent"}
	],
	"summary_plan_and_steps": "Three steps: profile, filings, forecast."
}`

func TestDecomposeGoal_PersistsPlanAndOrderedSteps(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{output: plannerReply}
	p := newTestPlanner(t, client, db)

	plan, steps, err := p.DecomposeGoal(context.Background(), "Evaluate MSFT as an investment")
	if err != nil {
		t.Fatalf("DecomposeGoal failed: %v", err)
	}
	if plan.Goal != "Evaluate MSFT as an investment" {
		t.Errorf("plan goal = %q", plan.Goal)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}

	wantAgents := []models.AgentType{
		models.AgentTypeCompany,
		models.AgentTypeSec,
		models.AgentTypeForecaster,
	}
	var gotAgents []models.AgentType
	for _, s := range steps {
		gotAgents = append(gotAgents, s.Agent)
		if s.Status != models.StepStatusPlanned {
			t.Errorf("step %q status = %q, want planned", s.Action, s.Status)
		}
		if s.PlanID != plan.ID {
			t.Errorf("step %q belongs to plan %q, want %q", s.Action, s.PlanID, plan.ID)
		}
	}
	if diff := cmp.Diff(wantAgents, gotAgents); diff != "" {
		t.Errorf("step agents mismatch (-want +got):\n%s", diff)
	}

	// The plan and its steps round-trip through the store.
	stored, err := db.GetPlanWithSteps(plan.ID)
	if err != nil {
		t.Fatalf("GetPlanWithSteps failed: %v", err)
	}
	if len(stored.Steps) != 3 {
		t.Errorf("store holds %d steps, want 3", len(stored.Steps))
	}
	for i, s := range stored.Steps {
		if s.Action != steps[i].Action {
			t.Errorf("stored step %d action = %q, want %q", i, s.Action, steps[i].Action)
		}
	}

	// The summary lands in the message log under the planner's name.
	msgs, err := db.ListMessages(plan.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want the summary only", len(msgs))
	}
	if msgs[0].Source != models.AgentTypePlanner {
		t.Errorf("summary source = %q, want planner", msgs[0].Source)
	}
	if msgs[0].Content != "Three steps: profile, filings, forecast." {
		t.Errorf("summary content = %q", msgs[0].Content)
	}
}

func TestDecomposeGoal_AcceptsFencedJSON(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{output: "```json\n" + plannerReply + "\n```"}
	p := newTestPlanner(t, client, db)

	_, steps, err := p.DecomposeGoal(context.Background(), "Evaluate MSFT")
	if err != nil {
		t.Fatalf("DecomposeGoal failed: %v", err)
	}
	if len(steps) != 3 {
		t.Errorf("got %d steps from fenced JSON, want 3", len(steps))
	}
}

func TestDecomposeGoal_MalformedReplyFallsBackToGenericStep(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{output: "I would begin by researching the company."}
	p := newTestPlanner(t, client, db)

	plan, steps, err := p.DecomposeGoal(context.Background(), "Evaluate TSLA")
	if err != nil {
		t.Fatalf("DecomposeGoal failed: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("got %d steps, want the single fallback step", len(steps))
	}
	if steps[0].Agent != models.AgentTypeGeneric {
		t.Errorf("fallback agent = %q, want generic", steps[0].Agent)
	}
	if steps[0].Action != "Evaluate TSLA" {
		t.Errorf("fallback action = %q, want the whole goal", steps[0].Action)
	}
	if plan.Goal != "Evaluate TSLA" {
		t.Errorf("plan goal = %q", plan.Goal)
	}
}

func TestDecomposeGoal_UnknownAgentsRouteToGeneric(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{output: `{
		"steps": [
			{"action": "Do something exotic", "agent": "QuantumAgent"},
			{"action": "Coordinate everyone", "agent": "GroupChatManager"},
			{"action": "Plan more", "agent": "PlannerAgent"}
		]
	}`}
	p := newTestPlanner(t, client, db)

	_, steps, err := p.DecomposeGoal(context.Background(), "some goal")
	if err != nil {
		t.Fatalf("DecomposeGoal failed: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	for _, s := range steps {
		if s.Agent != models.AgentTypeGeneric {
			t.Errorf("step %q routed to %q, want generic", s.Action, s.Agent)
		}
	}
}

func TestDecomposeGoal_SkipsEmptyActions(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{output: `{
		"steps": [
			{"action": "  ", "agent": "CompanyAgent"},
			{"action": "Real work", "agent": "CompanyAgent"}
		]
	}`}
	p := newTestPlanner(t, client, db)

	_, steps, err := p.DecomposeGoal(context.Background(), "some goal")
	if err != nil {
		t.Fatalf("DecomposeGoal failed: %v", err)
	}
	if len(steps) != 1 || steps[0].Action != "Real work" {
		t.Errorf("steps = %+v, want only the non-empty action", steps)
	}
}

func TestDecomposeGoal_EmptyGoal(t *testing.T) {
	p := newTestPlanner(t, &fakeClient{}, newTestStore(t))
	if _, _, err := p.DecomposeGoal(context.Background(), "   "); err == nil {
		t.Fatal("expected an error for an empty goal")
	}
}

func TestDecomposeGoal_BackendFailurePersistsNothing(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{runErr: errors.New("backend down")}
	p := newTestPlanner(t, client, db)

	if _, _, err := p.DecomposeGoal(context.Background(), "Evaluate AAPL"); err == nil {
		t.Fatal("expected the backend error to propagate")
	}
	plans, err := db.ListPlans("sess-1")
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("found %d persisted plans after a failed decomposition, want none", len(plans))
	}
}

func TestDecomposeGoal_PromptNamesTheRoster(t *testing.T) {
	db := newTestStore(t)
	client := &fakeClient{output: plannerReply}
	p := newTestPlanner(t, client, db)

	if _, _, err := p.DecomposeGoal(context.Background(), "Evaluate MSFT"); err != nil {
		t.Fatalf("DecomposeGoal failed: %v", err)
	}
	prompt := client.lastRun(t).Input
	for _, typ := range models.OrdinaryAgentTypes() {
		if !strings.Contains(prompt, string(typ)) {
			t.Errorf("decomposition prompt does not name %s", typ)
		}
	}
	if !strings.Contains(prompt, "Evaluate MSFT") {
		t.Error("decomposition prompt does not carry the goal")
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripFences(tc.in); got != tc.want {
				t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

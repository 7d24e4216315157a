package agent

import (
	"strings"
	"testing"

	"github.com/kpenrose/finscope/pkg/models"
)

func TestProfileFor_CoversEveryAgentType(t *testing.T) {
	for _, typ := range models.AllAgentTypes() {
		p, ok := ProfileFor(typ)
		if !ok {
			t.Errorf("no profile for %s", typ)
			continue
		}
		if p.Type != typ {
			t.Errorf("profile for %s carries type %s", typ, p.Type)
		}
		if p.Instructions == "" {
			t.Errorf("profile for %s has no instructions", typ)
		}
	}
	if _, ok := ProfileFor(models.AgentType("NoSuchAgent")); ok {
		t.Error("ProfileFor accepted an unknown type")
	}
}

func TestProfileFor_RemoteAndCapabilityFlags(t *testing.T) {
	human, _ := ProfileFor(models.AgentTypeHuman)
	if human.Remote {
		t.Error("human profile must be local-only")
	}
	for _, typ := range models.AllAgentTypes() {
		if typ == models.AgentTypeHuman {
			continue
		}
		p, _ := ProfileFor(typ)
		if !p.Remote {
			t.Errorf("%s must be remote", typ)
		}
	}

	enterprise, _ := ProfileFor(models.AgentTypeEnterprise)
	if !enterprise.RequiresDocumentSearch {
		t.Error("enterprise profile must require document search")
	}
	if enterprise.Preprocess == nil {
		t.Error("enterprise profile must rewrite search-like actions")
	}

	web, _ := ProfileFor(models.AgentTypeWeb)
	if !web.WantsWebSearch {
		t.Error("web profile must want grounded web search")
	}
	if web.RequiresDocumentSearch {
		t.Error("web profile must not require document search")
	}
}

func TestEnterprisePreprocess_RewritesSearchLikeActions(t *testing.T) {
	got := enterprisePreprocess("Get internal risk details for Cuba")
	if !strings.Contains(got, "=== CRITICAL INSTRUCTION ===") {
		t.Errorf("rewritten action lacks the instruction banner: %q", got)
	}
	if !strings.Contains(got, "Original request: Get internal risk details for Cuba") {
		t.Errorf("rewritten action lost the original request: %q", got)
	}
	if !strings.Contains(got, "country sanctions risk category") {
		t.Errorf("rewritten action lacks the query shape: %q", got)
	}
}

func TestEnterprisePreprocess_TriggerMatchingIsCaseInsensitive(t *testing.T) {
	got := enterprisePreprocess("What is the SANCTION status here?")
	if !strings.Contains(got, "=== CRITICAL INSTRUCTION ===") {
		t.Errorf("uppercase trigger did not rewrite: %q", got)
	}
}

func TestEnterprisePreprocess_LeavesOtherActionsAlone(t *testing.T) {
	action := "Summarize the prior step"
	if got := enterprisePreprocess(action); got != action {
		t.Errorf("non-search action was rewritten to %q", got)
	}
}

func TestRosterDescriptions(t *testing.T) {
	roster := RosterDescriptions()
	for _, typ := range models.OrdinaryAgentTypes() {
		if !strings.Contains(roster, "- "+string(typ)+": ") {
			t.Errorf("roster lacks a line for %s", typ)
		}
	}
	if strings.Contains(roster, string(models.AgentTypePlanner)) {
		t.Error("roster must not offer the planner as an assignee")
	}
	if strings.Contains(roster, string(models.AgentTypeGroupChatManager)) {
		t.Error("roster must not offer the manager as an assignee")
	}
}

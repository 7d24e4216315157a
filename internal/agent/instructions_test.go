package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kpenrose/finscope/pkg/models"
)

func writeOverrideFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	writeOverrideFile(t, dir, "CompanyAgent.yaml",
		"instructions: Focus on European equities.\ndescription: EU company coverage\n")
	writeOverrideFile(t, dir, "WebAgent.yml", "instructions: Cite at least two sources.\n")
	writeOverrideFile(t, dir, "README.md", "not an override")
	writeOverrideFile(t, dir, "NotAnAgent.yaml", "instructions: ignored\n")

	overrides, err := LoadOverrides(dir)
	if err != nil {
		t.Fatalf("LoadOverrides failed: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("got %d overrides, want 2: %+v", len(overrides), overrides)
	}

	company := overrides[models.AgentTypeCompany]
	if company.Instructions != "Focus on European equities." {
		t.Errorf("company instructions = %q", company.Instructions)
	}
	if company.Description != "EU company coverage" {
		t.Errorf("company description = %q", company.Description)
	}

	web := overrides[models.AgentTypeWeb]
	if web.Instructions != "Cite at least two sources." {
		t.Errorf("web instructions = %q", web.Instructions)
	}
	if web.Description != "" {
		t.Errorf("web description = %q, want empty", web.Description)
	}
}

func TestLoadOverrides_EmptyDirMeansNone(t *testing.T) {
	overrides, err := LoadOverrides("")
	if err != nil {
		t.Fatalf("LoadOverrides failed: %v", err)
	}
	if overrides != nil {
		t.Errorf("overrides = %+v, want nil", overrides)
	}
}

func TestLoadOverrides_MissingDir(t *testing.T) {
	if _, err := LoadOverrides(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestLoadOverrides_BadYAML(t *testing.T) {
	dir := t.TempDir()
	writeOverrideFile(t, dir, "CompanyAgent.yaml", "instructions: [unclosed\n")
	if _, err := LoadOverrides(dir); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestProfileApply(t *testing.T) {
	base, _ := ProfileFor(models.AgentTypeCompany)

	full := base.Apply(Override{Instructions: "new instructions", Description: "new description"})
	if full.Instructions != "new instructions" || full.Description != "new description" {
		t.Errorf("full override not applied: %+v", full)
	}
	if full.Type != base.Type || full.Remote != base.Remote {
		t.Error("override must not touch type or remote flags")
	}

	partial := base.Apply(Override{Description: "only the description"})
	if partial.Instructions != base.Instructions {
		t.Error("empty override field replaced the default instructions")
	}
	if partial.Description != "only the description" {
		t.Errorf("description = %q", partial.Description)
	}

	untouched := base.Apply(Override{})
	if untouched.Instructions != base.Instructions || untouched.Description != base.Description {
		t.Error("empty override changed the profile")
	}
}

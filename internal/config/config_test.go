package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected default model 'gpt-4o', got %q", cfg.OpenAI.Model)
	}

	if cfg.OpenAI.Temperature != 0.0 {
		t.Errorf("expected default temperature 0.0, got %v", cfg.OpenAI.Temperature)
	}

	if cfg.Agents.StepTimeout != 5*time.Minute {
		t.Errorf("expected step timeout 5m, got %v", cfg.Agents.StepTimeout)
	}

	if cfg.Approval.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", cfg.Approval.PollInterval)
	}

	if cfg.Approval.AutoApprove {
		t.Error("expected approval.auto_approve to default to false")
	}

	if !cfg.Log.Pretty {
		t.Error("expected log.pretty to default to true")
	}

	if cfg.Store.Path == "" {
		t.Error("expected default store path to be set")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
openai:
  api_key: test-key
  base_url: https://example.test/v1
  model: gpt-4o-mini
  temperature: 0.2
search:
  web:
    endpoint: https://search.example.test
    api_key: web-key
  documents:
    vector_store_id: vs_123
store:
  path: /tmp/finscope-test.db
log:
  debug: true
  pretty: false
approval:
  auto_approve: true
  poll_interval: 500ms
agents:
  step_timeout: 90s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.OpenAI.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.OpenAI.APIKey)
	}

	if cfg.OpenAI.BaseURL != "https://example.test/v1" {
		t.Errorf("expected base_url override, got %q", cfg.OpenAI.BaseURL)
	}

	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("expected model 'gpt-4o-mini', got %q", cfg.OpenAI.Model)
	}

	if cfg.Search.Web.Endpoint != "https://search.example.test" {
		t.Errorf("expected web search endpoint, got %q", cfg.Search.Web.Endpoint)
	}

	if cfg.Search.Documents.VectorStoreID != "vs_123" {
		t.Errorf("expected vector_store_id 'vs_123', got %q", cfg.Search.Documents.VectorStoreID)
	}

	if cfg.Store.Path != "/tmp/finscope-test.db" {
		t.Errorf("expected store path override, got %q", cfg.Store.Path)
	}

	if !cfg.Log.Debug {
		t.Error("expected log.debug to be true")
	}

	if cfg.Log.Pretty {
		t.Error("expected log.pretty to be false")
	}

	if !cfg.Approval.AutoApprove {
		t.Error("expected approval.auto_approve to be true")
	}

	if cfg.Approval.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", cfg.Approval.PollInterval)
	}

	if cfg.Agents.StepTimeout != 90*time.Second {
		t.Errorf("expected step timeout 90s, got %v", cfg.Agents.StepTimeout)
	}
}

func TestLoadFromPath_DefaultsFillGaps(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("openai:\n  api_key: only-key\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected default model to fill gap, got %q", cfg.OpenAI.Model)
	}
	if cfg.Agents.StepTimeout != 5*time.Minute {
		t.Errorf("expected default step timeout to fill gap, got %v", cfg.Agents.StepTimeout)
	}
	if cfg.Store.Path == "" {
		t.Error("expected empty store path to fall back to default")
	}
}

func TestExpandEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "expanded-value")
	defer os.Unsetenv("TEST_VAR")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/finscope"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestDefaultStorePath_XDG(t *testing.T) {
	os.Setenv("XDG_DATA_HOME", "/custom/data")
	defer os.Unsetenv("XDG_DATA_HOME")

	got := DefaultStorePath()
	expected := "/custom/data/finscope/finscope.db"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

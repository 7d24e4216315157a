// Package config handles configuration loading and management for finscope.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for finscope.
type Config struct {
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Search   SearchConfig   `mapstructure:"search"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Agents   AgentsConfig   `mapstructure:"agents"`
}

// OpenAIConfig holds execution-backend API settings. BaseURL switches the
// backend (Azure OpenAI deployments, OpenRouter) without code changes.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// SearchConfig holds the optional search capability settings.
type SearchConfig struct {
	Web       WebSearchConfig      `mapstructure:"web"`
	Documents DocumentSearchConfig `mapstructure:"documents"`
}

// WebSearchConfig configures the grounded web-search capability. Both
// fields empty means the capability is unavailable.
type WebSearchConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// DocumentSearchConfig configures the internal document-search capability.
// A vector store may be referenced by id directly or located by name.
type DocumentSearchConfig struct {
	VectorStoreID   string `mapstructure:"vector_store_id"`
	VectorStoreName string `mapstructure:"vector_store_name"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug  bool `mapstructure:"debug"`
	Pretty bool `mapstructure:"pretty"`
}

// ApprovalConfig holds human-in-the-loop settings.
type ApprovalConfig struct {
	// AutoApprove pre-approves every planned step. Intended for scripted
	// runs; interactive review is the default.
	AutoApprove bool `mapstructure:"auto_approve"`
	// WatchDir is the directory watched for dropped feedback files.
	WatchDir string `mapstructure:"watch_dir"`
	// PollInterval is the fallback scan interval when fsnotify is
	// unavailable.
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// AgentsConfig holds per-agent execution settings.
type AgentsConfig struct {
	// StepTimeout bounds a single step dispatch; remote agent calls have
	// no natural deadline of their own.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	// InstructionsDir optionally points at per-agent instruction override
	// YAML files.
	InstructionsDir string `mapstructure:"instructions_dir"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (OPENAI_API_KEY, OPENAI_BASE_URL, ...)
// 2. Project config (.finscope.yaml in current directory or parent)
// 3. User config (~/.config/finscope/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()

	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("search.web.endpoint", "FINSCOPE_WEB_SEARCH_ENDPOINT")
	v.BindEnv("search.web.api_key", "FINSCOPE_WEB_SEARCH_API_KEY")
	v.BindEnv("search.documents.vector_store_id", "FINSCOPE_VECTOR_STORE_ID")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.Search.Web.APIKey = expandEnv(cfg.Search.Web.APIKey)

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	cfg.Search.Web.APIKey = expandEnv(cfg.Search.Web.APIKey)

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("openai.api_key", cfg.OpenAI.APIKey)
	v.Set("openai.base_url", cfg.OpenAI.BaseURL)
	v.Set("openai.model", cfg.OpenAI.Model)
	v.Set("openai.temperature", cfg.OpenAI.Temperature)
	v.Set("search.web.endpoint", cfg.Search.Web.Endpoint)
	v.Set("search.web.api_key", cfg.Search.Web.APIKey)
	v.Set("search.documents.vector_store_id", cfg.Search.Documents.VectorStoreID)
	v.Set("search.documents.vector_store_name", cfg.Search.Documents.VectorStoreName)
	v.Set("store.path", cfg.Store.Path)
	v.Set("log.debug", cfg.Log.Debug)
	v.Set("log.pretty", cfg.Log.Pretty)
	v.Set("approval.auto_approve", cfg.Approval.AutoApprove)
	v.Set("approval.watch_dir", cfg.Approval.WatchDir)
	v.Set("approval.poll_interval", cfg.Approval.PollInterval.String())
	v.Set("agents.step_timeout", cfg.Agents.StepTimeout.String())
	v.Set("agents.instructions_dir", cfg.Agents.InstructionsDir)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultStorePath returns the XDG data path for the sqlite store.
func DefaultStorePath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "finscope", "finscope.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".finscope", "finscope.db")
	}
	return filepath.Join(home, ".local", "share", "finscope", "finscope.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.temperature", 0.0)

	v.SetDefault("search.web.endpoint", "")
	v.SetDefault("search.web.api_key", "")
	v.SetDefault("search.documents.vector_store_id", "")
	v.SetDefault("search.documents.vector_store_name", "")

	v.SetDefault("store.path", "")

	v.SetDefault("log.debug", false)
	v.SetDefault("log.pretty", true)

	v.SetDefault("approval.auto_approve", false)
	v.SetDefault("approval.watch_dir", "")
	v.SetDefault("approval.poll_interval", "2s")

	v.SetDefault("agents.step_timeout", "5m")
	v.SetDefault("agents.instructions_dir", "")
}

// getUserConfigDir returns the XDG config directory for finscope.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "finscope")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "finscope")
	}
	return filepath.Join(home, ".config", "finscope")
}

// findProjectConfig searches for .finscope.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".finscope.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o",
			Temperature: 0.0,
		},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Log: LogConfig{
			Pretty: true,
		},
		Approval: ApprovalConfig{
			PollInterval: 2 * time.Second,
		},
		Agents: AgentsConfig{
			StepTimeout: 5 * time.Minute,
		},
	}
}

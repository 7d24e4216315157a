package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpenrose/finscope/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify finscope configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/finscope/config.yaml
Project-specific overrides can be placed in .finscope.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetUserConfigPath()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Set your API key with: finscope config openai.api_key <key>")
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("openai.api_key: %s", config.MaskAPIKey(cfg.OpenAI.APIKey))
	if config.GetAPIKeySource(cfg) == config.KeySourceEnv {
		fmt.Printf(" (from environment)")
	}
	fmt.Println()
	fmt.Printf("openai.base_url: %s\n", orUnset(cfg.OpenAI.BaseURL))
	fmt.Printf("openai.model: %s\n", cfg.OpenAI.Model)
	fmt.Printf("openai.temperature: %g\n", cfg.OpenAI.Temperature)
	fmt.Printf("search.web.endpoint: %s\n", orUnset(cfg.Search.Web.Endpoint))
	fmt.Printf("search.web.api_key: %s\n", config.MaskAPIKey(cfg.Search.Web.APIKey))
	fmt.Printf("search.documents.vector_store_id: %s\n", orUnset(cfg.Search.Documents.VectorStoreID))
	fmt.Printf("search.documents.vector_store_name: %s\n", orUnset(cfg.Search.Documents.VectorStoreName))
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
	fmt.Printf("log.debug: %t\n", cfg.Log.Debug)
	fmt.Printf("log.pretty: %t\n", cfg.Log.Pretty)
	fmt.Printf("approval.auto_approve: %t\n", cfg.Approval.AutoApprove)
	fmt.Printf("approval.watch_dir: %s\n", orUnset(cfg.Approval.WatchDir))
	fmt.Printf("approval.poll_interval: %s\n", cfg.Approval.PollInterval)
	fmt.Printf("agents.step_timeout: %s\n", cfg.Agents.StepTimeout)
	fmt.Printf("agents.instructions_dir: %s\n", orUnset(cfg.Agents.InstructionsDir))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "openai.api_key":
		return config.MaskAPIKey(cfg.OpenAI.APIKey), nil
	case "openai.base_url":
		return cfg.OpenAI.BaseURL, nil
	case "openai.model":
		return cfg.OpenAI.Model, nil
	case "openai.temperature":
		return strconv.FormatFloat(cfg.OpenAI.Temperature, 'g', -1, 64), nil
	case "search.web.endpoint":
		return cfg.Search.Web.Endpoint, nil
	case "search.web.api_key":
		return config.MaskAPIKey(cfg.Search.Web.APIKey), nil
	case "search.documents.vector_store_id":
		return cfg.Search.Documents.VectorStoreID, nil
	case "search.documents.vector_store_name":
		return cfg.Search.Documents.VectorStoreName, nil
	case "store.path":
		return cfg.Store.Path, nil
	case "log.debug":
		return strconv.FormatBool(cfg.Log.Debug), nil
	case "log.pretty":
		return strconv.FormatBool(cfg.Log.Pretty), nil
	case "approval.auto_approve":
		return strconv.FormatBool(cfg.Approval.AutoApprove), nil
	case "approval.watch_dir":
		return cfg.Approval.WatchDir, nil
	case "approval.poll_interval":
		return cfg.Approval.PollInterval.String(), nil
	case "agents.step_timeout":
		return cfg.Agents.StepTimeout.String(), nil
	case "agents.instructions_dir":
		return cfg.Agents.InstructionsDir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "openai.api_key":
		cfg.OpenAI.APIKey = value
	case "openai.base_url":
		cfg.OpenAI.BaseURL = value
	case "openai.model":
		cfg.OpenAI.Model = value
	case "openai.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for temperature: %w", err)
		}
		cfg.OpenAI.Temperature = f
	case "search.web.endpoint":
		cfg.Search.Web.Endpoint = value
	case "search.web.api_key":
		cfg.Search.Web.APIKey = value
	case "search.documents.vector_store_id":
		cfg.Search.Documents.VectorStoreID = value
	case "search.documents.vector_store_name":
		cfg.Search.Documents.VectorStoreName = value
	case "store.path":
		cfg.Store.Path = value
	case "log.debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for log.debug: %w", err)
		}
		cfg.Log.Debug = b
	case "log.pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for log.pretty: %w", err)
		}
		cfg.Log.Pretty = b
	case "approval.auto_approve":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for approval.auto_approve: %w", err)
		}
		cfg.Approval.AutoApprove = b
	case "approval.watch_dir":
		cfg.Approval.WatchDir = value
	case "approval.poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for approval.poll_interval: %w", err)
		}
		cfg.Approval.PollInterval = d
	case "agents.step_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for agents.step_timeout: %w", err)
		}
		cfg.Agents.StepTimeout = d
	case "agents.instructions_dir":
		cfg.Agents.InstructionsDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

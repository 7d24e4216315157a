package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// Override carries deployment-supplied replacements for a profile's
// defaults. Empty fields leave the default in place.
type Override struct {
	Instructions string `yaml:"instructions"`
	Description  string `yaml:"description"`
}

// Apply returns the profile with non-empty override fields applied.
func (p Profile) Apply(o Override) Profile {
	if o.Instructions != "" {
		p.Instructions = o.Instructions
	}
	if o.Description != "" {
		p.Description = o.Description
	}
	return p
}

// LoadOverrides reads per-agent override files from dir. Each file is
// named after the agent type it overrides (CompanyAgent.yaml) and holds
// an instructions and optional description key. An empty dir means no
// overrides; files that do not name a known agent type are skipped.
func LoadOverrides(dir string) (map[models.AgentType]Override, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading instructions dir: %w", err)
	}

	log := logx.Component("agent")
	overrides := make(map[models.AgentType]Override)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		agentType, err := models.ParseAgentType(name)
		if err != nil {
			log.Warn().Str("file", entry.Name()).Msg("instructions file does not name an agent type, skipping")
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var o Override
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		overrides[agentType] = o
	}
	return overrides, nil
}

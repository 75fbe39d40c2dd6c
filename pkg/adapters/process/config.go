package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/stagegate/pkg/domain"
)

// ProviderConfig is the external command that carries out one action type.
type ProviderConfig struct {
	Action      domain.ActionType `yaml:"action" json:"action"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of providers.yaml.
type ConfigFile struct {
	Providers []ProviderConfig `yaml:"providers" json:"providers"`
}

// LoadProviders reads a configuration file (YAML or JSON) and returns the
// providers keyed by the action they execute. A missing file configures none.
func LoadProviders(path string) (map[domain.ActionType]ProviderConfig, error) {
	if path == "" {
		return map[domain.ActionType]ProviderConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[domain.ActionType]ProviderConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read providers config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	providers := make(map[domain.ActionType]ProviderConfig)
	for _, p := range cfg.Providers {
		if p.Command == "" {
			continue
		}
		if !p.Action.Executes() {
			return nil, fmt.Errorf("provider %q: %q is not an executable action", p.Command, p.Action)
		}
		providers[p.Action] = p
	}
	return providers, nil
}

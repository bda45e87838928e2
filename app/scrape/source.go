package scrape

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes the page being watched. Values from an optional
// YAML file override the command-line defaults.
type SourceConfig struct {
	URL          string `yaml:"url"`
	Selector     string `yaml:"selector"`
	PollInterval int    `yaml:"poll_interval"`
}

// LoadSourceConfig reads a source configuration file and fills unset fields
// with the provided defaults.
func LoadSourceConfig(path string, defaults SourceConfig) (SourceConfig, error) {
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read source config: %w", err)
	}

	var sc SourceConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return defaults, fmt.Errorf("failed to parse source config YAML: %w", err)
	}

	if sc.URL == "" {
		sc.URL = defaults.URL
	}
	if sc.Selector == "" {
		sc.Selector = defaults.Selector
	}
	if sc.PollInterval == 0 {
		sc.PollInterval = defaults.PollInterval
	}

	if sc.URL == "" {
		return sc, fmt.Errorf("source URL is required")
	}
	if sc.Selector == "" {
		return sc, fmt.Errorf("source selector is required")
	}
	if sc.PollInterval < 0 {
		return sc, fmt.Errorf("poll interval must be non-negative")
	}

	return sc, nil
}

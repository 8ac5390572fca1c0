// Package config loads the workspace configuration from
// .opsdeck/config.yaml: console API connection, draft database location,
// operator defaults and the logging section the logging package reads on its
// own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all opsdeck configuration.
type Config struct {
	// Remote console API connection
	API APIConfig `yaml:"api"`

	// Local draft persistence
	Drafts DraftsConfig `yaml:"drafts"`

	// Operator defaults
	Defaults DefaultsConfig `yaml:"defaults"`

	// Logging (also read directly by the logging package)
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the console API client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"` // Go duration string, e.g. "30s"
}

// DraftsConfig configures the local draft store.
type DraftsConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultsConfig holds operator defaults applied when a command omits them.
type DefaultsConfig struct {
	Actor string `yaml:"actor"` // Attributed as created_by / assigned_by
}

// LoggingConfig mirrors the section the logging package reads.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(workspace string) *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/v1",
			Timeout: "30s",
		},
		Drafts: DraftsConfig{
			DatabasePath: filepath.Join(workspace, ".opsdeck", "drafts.db"),
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".opsdeck", "config.yaml")
}

// Load reads the workspace config, falling back to defaults when the file is
// missing. Environment overrides are applied last.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig(workspace)

	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("OPSDECK_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if tok := os.Getenv("OPSDECK_API_TOKEN"); tok != "" {
		c.API.Token = tok
	}
	if actor := os.Getenv("OPSDECK_ACTOR"); actor != "" {
		c.Defaults.Actor = actor
	}
	if db := os.Getenv("OPSDECK_DRAFTS_DB"); db != "" {
		c.Drafts.DatabasePath = db
	}
}

// APITimeout parses the configured API timeout, with a 30s fallback for a
// missing or malformed value.
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

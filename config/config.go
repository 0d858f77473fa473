// Package config defines the Capstan application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Capstan configuration.
type Config struct {
	DataDir     string            `json:"data_dir" yaml:"data_dir"`
	LogLevel    string            `json:"log_level" yaml:"log_level"`
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
}

// CoordinatorConfig controls the coordinator control loop. Durations are
// whole seconds; zero values fall through to the coordinator's defaults.
type CoordinatorConfig struct {
	PollIntervalSeconds int `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	LeaseSeconds        int `json:"lease_seconds" yaml:"lease_seconds"`
}

// PollInterval returns the mailbox poll cadence.
func (c CoordinatorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// LeaseDuration returns the task ownership lease TTL.
func (c CoordinatorConfig) LeaseDuration() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

// MailboxDir returns the directory holding per-agent mailbox files.
func (c *Config) MailboxDir() string { return filepath.Join(c.DataDir, "mailboxes") }

// LogsDir returns the directory holding per-agent activity logs.
func (c *Config) LogsDir() string { return filepath.Join(c.DataDir, "logs") }

// StateDir returns the directory holding the shared state documents.
func (c *Config) StateDir() string { return filepath.Join(c.DataDir, "state") }

// JournalPath returns the append-only coordination journal file.
func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir(), "coordination_events.jsonl")
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		Coordinator: CoordinatorConfig{
			PollIntervalSeconds: 2,
			LeaseSeconds:        120,
		},
	}
}

// Load reads a YAML config file and returns the parsed configuration.
// Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

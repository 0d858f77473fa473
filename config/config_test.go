package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "./data")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if got := cfg.Coordinator.PollInterval(); got != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", got)
	}
	if got := cfg.Coordinator.LeaseDuration(); got != 120*time.Second {
		t.Errorf("LeaseDuration() = %v, want 120s", got)
	}
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capstan.yaml")
	body := "data_dir: /var/lib/capstan\ncoordinator:\n  lease_seconds: 300\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != "/var/lib/capstan" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/var/lib/capstan")
	}
	if got := cfg.Coordinator.LeaseDuration(); got != 300*time.Second {
		t.Errorf("LeaseDuration() = %v, want 300s", got)
	}
	// Keys absent from the file keep their defaults.
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
	if got := cfg.Coordinator.PollInterval(); got != 2*time.Second {
		t.Errorf("PollInterval() = %v, want default 2s", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [unterminated"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for malformed YAML")
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/srv/capstan"}

	if got := cfg.MailboxDir(); got != filepath.Join("/srv/capstan", "mailboxes") {
		t.Errorf("MailboxDir() = %q", got)
	}
	if got := cfg.LogsDir(); got != filepath.Join("/srv/capstan", "logs") {
		t.Errorf("LogsDir() = %q", got)
	}
	if got := cfg.StateDir(); got != filepath.Join("/srv/capstan", "state") {
		t.Errorf("StateDir() = %q", got)
	}
	if got := cfg.JournalPath(); got != filepath.Join("/srv/capstan", "state", "coordination_events.jsonl") {
		t.Errorf("JournalPath() = %q", got)
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("http_address = %q, want :8080", cfg.Server.HTTPAddress)
	}
	if cfg.Presence.LivenessWindow != 10*time.Second {
		t.Errorf("liveness_window = %v, want 10s", cfg.Presence.LivenessWindow)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_address: ":9000"
  login_rate_per_min: 5
database:
  path: /tmp/test.db
presence:
  liveness_window: 20s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("http_address = %q, want :9000", cfg.Server.HTTPAddress)
	}
	if cfg.Server.LoginRatePerMin != 5 {
		t.Errorf("login_rate_per_min = %d, want 5", cfg.Server.LoginRatePerMin)
	}
	if cfg.Presence.LivenessWindow != 20*time.Second {
		t.Errorf("liveness_window = %v, want 20s", cfg.Presence.LivenessWindow)
	}
	// Unset fields fall back to defaults
	if cfg.Server.MetricsAddress != ":9091" {
		t.Errorf("metrics_address = %q, want default :9091", cfg.Server.MetricsAddress)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map]"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigValidate_RejectsNegativeRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.LoginRatePerMin = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative login rate")
	}
}

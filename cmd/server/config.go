// Package main provides the PairPad server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Presence PresenceConfig `yaml:"presence"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"http_address"`       // API listen address (default: :8080)
	MetricsAddress  string        `yaml:"metrics_address"`    // Prometheus listen address (default: :9091)
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`   // JWT lifetime (default: 24h)
	LoginRatePerMin int           `yaml:"login_rate_per_min"` // login attempts per minute per IP
	StreamMaxLife   time.Duration `yaml:"stream_max_life"`    // max SSE stream lifetime (default: 30m)
}

// DatabaseConfig contains storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database path (default: data/pairpad.db)
}

// PresenceConfig contains liveness settings.
type PresenceConfig struct {
	LivenessWindow time.Duration `yaml:"liveness_window"` // session considered online within this (default: 10s)
	ReapInterval   time.Duration `yaml:"reap_interval"`   // stale row cleanup cadence (default: 1m)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9091"
	}
	if c.Server.AccessTokenTTL == 0 {
		c.Server.AccessTokenTTL = 24 * time.Hour
	}
	if c.Server.LoginRatePerMin == 0 {
		c.Server.LoginRatePerMin = 10
	}
	if c.Server.StreamMaxLife == 0 {
		c.Server.StreamMaxLife = 30 * time.Minute
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/pairpad.db"
	}
	if c.Presence.LivenessWindow == 0 {
		c.Presence.LivenessWindow = 10 * time.Second
	}
	if c.Presence.ReapInterval == 0 {
		c.Presence.ReapInterval = time.Minute
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Presence.LivenessWindow <= 0 {
		return fmt.Errorf("presence.liveness_window must be positive")
	}
	if c.Server.LoginRatePerMin < 0 {
		return fmt.Errorf("server.login_rate_per_min must not be negative")
	}
	return nil
}

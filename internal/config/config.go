// Package config provides gatekeeper's own operational configuration.
//
// This is deliberately distinct from the enforced *policy document*
// (windsurf/policy/policy.json, loaded by the policy store): the policy
// document describes what the agent may do, this package describes how the
// gatekeeper binary itself runs: where session state lives, where audit
// logs go, how long the verification script may run, how the gateway logs.
//
// Intentionally excluded, because every gatekeeper invocation is a
// short-lived process (one interception point per run):
//
//   - NO network listener configuration
//   - NO upstream servers (the MCP server is an external collaborator)
//   - NO identities or API keys (the only caller is the host agent)
//   - NO admin web interface
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the top-level operational configuration for gatekeeper.
type Config struct {
	// StateDir is where per-session state files are persisted.
	StateDir string `yaml:"state_dir" mapstructure:"state_dir" validate:"required"`

	// PolicyPath overrides the policy document search path. When empty the
	// policy store searches its default locations (/etc/windsurf/policy,
	// then the repo-local fallback).
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path"`

	// Audit configures the decision audit trail.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// VerifyTimeoutSeconds bounds the post-write verification script run.
	VerifyTimeoutSeconds int `yaml:"verify_timeout_seconds" mapstructure:"verify_timeout_seconds" validate:"gte=1,lte=600"`

	// Log configures gatekeeper's own structured logging.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Observability enables OpenTelemetry self-instrumentation of the hook
	// dispatch loop (spans + counters via stdout exporters).
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`

	// DevMode enables development features (verbose logging).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// AuditConfig configures where and how the decision audit trail is written.
type AuditConfig struct {
	// Dir is the directory for the JSON Lines audit log files.
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`
	// IndexPath is the SQLite file backing `gatekeeper audit query`.
	IndexPath string `yaml:"index_path" mapstructure:"index_path"`
	// RetentionDays is how long rotated audit files are kept.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days" validate:"gte=1,lte=3650"`
	// MaxFileSizeMB is the per-file size cap before rotation.
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb" validate:"gte=1,lte=10240"`
}

// LogConfig configures the slog handler every component receives.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	// Format is "text" or "json".
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// ObservabilityConfig toggles OpenTelemetry self-instrumentation.
type ObservabilityConfig struct {
	// Enabled turns on span and metric emission for each dispatch.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// defaultBaseDir returns the per-user root for gatekeeper's mutable data.
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gatekeeper"
	}
	return filepath.Join(home, ".gatekeeper")
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	base := defaultBaseDir()
	if c.StateDir == "" {
		c.StateDir = filepath.Join(base, "sessions")
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = filepath.Join(base, "audit")
	}
	if c.Audit.IndexPath == "" {
		c.Audit.IndexPath = filepath.Join(c.Audit.Dir, "audit-index.db")
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 30
	}
	if c.Audit.MaxFileSizeMB == 0 {
		c.Audit.MaxFileSizeMB = 100
	}
	if c.VerifyTimeoutSeconds == 0 {
		c.VerifyTimeoutSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// SetDevDefaults applies permissive defaults when dev mode is enabled.
// Called after SetDefaults and after any CLI flag overrides are applied.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Log.Level = "debug"
	c.Observability.Enabled = true
}

// FromViper unmarshals the currently-loaded Viper state into a Config.
func FromViper() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

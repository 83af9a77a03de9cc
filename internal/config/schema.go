// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for sjobs.
package config

import (
	"log/slog"
	"strings"

	"github.com/flemzord/sjobs/internal/security"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir overrides the default persistent data directory.
	DataDir string `yaml:"data_dir,omitempty"`

	Log LogConfig `yaml:"log"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "jobs.rest").
	Modules map[string]yaml.Node `yaml:"modules"`

	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
	Probe     *ProbeConfig     `yaml:"probe,omitempty"`
	Security  *SecurityConfig  `yaml:"security,omitempty"`
}

// LogConfig selects the process log level and output format.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `yaml:"format"`
}

// SlogLevel returns the configured level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// TelemetryConfig enables OpenTelemetry trace export over OTLP/HTTP.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP collector host:port. Empty keeps a local
	// provider that propagates context without exporting.
	Endpoint string `yaml:"endpoint"`

	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of root traces sampled, in [0, 1].
	// Zero means always sample.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// ProbeConfig controls the periodic jobs service health probe.
type ProbeConfig struct {
	// Schedule is a standard 5-field cron expression. Defaults to every minute.
	Schedule string `yaml:"schedule"`

	Disabled bool `yaml:"disabled"`
}

// SecurityConfig holds inbound traffic limits and the audit destination.
type SecurityConfig struct {
	RateLimits security.RateLimitConfig `yaml:"rate_limits"`

	// AuditLog is a file path receiving JSONL audit events. Empty disables
	// the file sink.
	AuditLog string `yaml:"audit_log,omitempty"`
}

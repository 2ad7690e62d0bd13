// Package config loads and normalizes runtime configuration from TOML,
// YAML, or JSON files. Zero values mean "unspecified" and are replaced by
// documented defaults; out-of-range values are clamped rather than fatal.
package config

import (
	"fmt"
	"time"

	"github.com/MythologIQ/Hearthlink-CORE/pkg/types"
)

// Defaults applied by Normalize when a field is unset or out of range.
const (
	DefaultSessionTimeoutSecs  = 3600
	DefaultMaxContextTokens    = 4096
	DefaultMaxTextBytes        = 64 * 1024
	DefaultMaxQueueDepth       = 1000
	DefaultRequestTimeoutSecs  = 30
	DefaultShutdownTimeoutSecs = 30
	DefaultSweepIntervalSecs   = 60

	// Ceiling for the per-request context window.
	maxContextTokensCeiling = 1_000_000
)

// Config holds all runtime tunables.
type Config struct {
	// Base directory model paths are resolved under. Empty means the
	// current directory.
	BasePath string `json:"base_path" yaml:"base_path" toml:"base_path"`
	// Shared secret callers must present to authenticate. Required.
	AuthToken string `json:"auth_token" yaml:"auth_token" toml:"auth_token"`
	// Session lifetime in seconds, fixed at creation.
	SessionTimeoutSecs int `json:"session_timeout_secs" yaml:"session_timeout_secs" toml:"session_timeout_secs"`
	// Maximum estimated prompt tokens per request.
	MaxContextTokens int `json:"max_context_tokens" yaml:"max_context_tokens" toml:"max_context_tokens"`
	// Maximum prompt size in bytes per request.
	MaxTextBytes int `json:"max_text_bytes" yaml:"max_text_bytes" toml:"max_text_bytes"`
	// Maximum concurrently admitted inference requests.
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	// Default (and maximum) per-request timeout in seconds.
	RequestTimeoutSecs int `json:"request_timeout_secs" yaml:"request_timeout_secs" toml:"request_timeout_secs"`
	// How long shutdown waits for in-flight requests before force-cancel.
	ShutdownTimeoutSecs int `json:"shutdown_timeout_secs" yaml:"shutdown_timeout_secs" toml:"shutdown_timeout_secs"`
	// Interval between expired-session sweeps.
	SweepIntervalSecs int `json:"sweep_interval_secs" yaml:"sweep_interval_secs" toml:"sweep_interval_secs"`
	// Readiness requires at least one loaded model when true.
	RequireModelLoaded bool `json:"require_model_loaded" yaml:"require_model_loaded" toml:"require_model_loaded"`
	// Log level: debug|info|warn|error. Empty means info.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Default returns the documented default configuration. The auth token is
// intentionally left empty; Validate rejects it until the caller sets one.
func Default() Config {
	return Config{
		BasePath:            ".",
		SessionTimeoutSecs:  DefaultSessionTimeoutSecs,
		MaxContextTokens:    DefaultMaxContextTokens,
		MaxTextBytes:        DefaultMaxTextBytes,
		MaxQueueDepth:       DefaultMaxQueueDepth,
		RequestTimeoutSecs:  DefaultRequestTimeoutSecs,
		ShutdownTimeoutSecs: DefaultShutdownTimeoutSecs,
		SweepIntervalSecs:   DefaultSweepIntervalSecs,
		LogLevel:            "info",
	}
}

// Normalize fills unset fields with defaults and clamps out-of-range
// values to safe ones. It never fails.
func (c Config) Normalize() Config {
	if c.BasePath == "" {
		c.BasePath = "."
	}
	if c.SessionTimeoutSecs <= 0 {
		c.SessionTimeoutSecs = DefaultSessionTimeoutSecs
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.MaxContextTokens > maxContextTokensCeiling {
		c.MaxContextTokens = maxContextTokensCeiling
	}
	if c.MaxTextBytes <= 0 {
		c.MaxTextBytes = DefaultMaxTextBytes
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.RequestTimeoutSecs <= 0 {
		c.RequestTimeoutSecs = DefaultRequestTimeoutSecs
	}
	if c.ShutdownTimeoutSecs <= 0 {
		c.ShutdownTimeoutSecs = DefaultShutdownTimeoutSecs
	}
	if c.SweepIntervalSecs <= 0 {
		c.SweepIntervalSecs = DefaultSweepIntervalSecs
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Validate rejects configurations the runtime cannot start with.
func (c Config) Validate() error {
	if c.AuthToken == "" {
		return fmt.Errorf("%w: auth_token is required", types.ErrInvalidConfig)
	}
	return nil
}

func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSecs) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

package config

import (
	"fmt"
	"time"
)

// ObservabilityConfig groups all configuration related to telemetry and runtime visibility:
//   - logging settings (format, level, optional rotating file)
//   - APM/tracing provider settings (New Relic)
//   - health check settings for the /status endpoint
type ObservabilityConfig struct {
	// ServiceName and Environment are forced by LoadConfig; whatever the
	// user sets is overwritten.
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`

	Logging      LoggingConfig      `koanf:"logging"`
	NewRelic     NewRelicConfig     `koanf:"new_relic"`
	HealthChecks HealthChecksConfig `koanf:"health_checks"`
}

// LoggingConfig holds application logging configuration.
type LoggingConfig struct {
	// Level is the verbosity threshold (debug/info/warn/error).
	// Empty means "pick by environment", see GetLogLevel.
	Level string `koanf:"level"`

	// Format is "json" or "console". Empty means console outside production.
	Format string `koanf:"format"`

	File LogFileConfig `koanf:"file"`
}

// LogFileConfig enables a rotating log file next to stdout.
// Path empty disables it.
type LogFileConfig struct {
	Path       string `koanf:"path"`
	MaxSize    int    `koanf:"max_size"` // megabytes
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// NewRelicConfig holds configuration for New Relic APM and tracing.
//
// An empty LicenseKey disables the agent entirely.
type NewRelicConfig struct {
	LicenseKey                string `koanf:"license_key"`
	AppLogForwardingEnabled   bool   `koanf:"app_log_forwarding_enabled"`
	DistributedTracingEnabled bool   `koanf:"distributed_tracing_enabled"`
	DebugLogging              bool   `koanf:"debug_logging"`
}

// HealthChecksConfig controls what /status checks.
type HealthChecksConfig struct {
	Enabled bool `koanf:"enabled"`

	// Timeout is the max time a single check may take.
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// Checks lists optional checks. "upstream" sends a HEAD to the
	// upstream base URL.
	Checks []string `koanf:"checks"`
}

// HealthCheckUpstream is the name of the upstream reachability check.
const HealthCheckUpstream = "upstream"

// Validate applies rules that go beyond struct tags.
func (c *ObservabilityConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	validLevels := map[string]bool{
		"":      true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s (must be one of: json, console)", c.Logging.Format)
	}

	validChecks := map[string]bool{
		HealthCheckUpstream: true,
	}
	for _, check := range c.HealthChecks.Checks {
		if !validChecks[check] {
			return fmt.Errorf("unknown health check: %s", check)
		}
	}

	return nil
}

// GetLogLevel returns the effective log level to use at runtime.
//
// An explicit level always wins. Otherwise production defaults to "info"
// and everything else to "debug".
func (c *ObservabilityConfig) GetLogLevel() string {
	if c.Logging.Level != "" {
		return c.Logging.Level
	}
	if c.IsProduction() {
		return "info"
	}
	return "debug"
}

// UseJSON reports whether logs should be written as JSON.
func (c *ObservabilityConfig) UseJSON() bool {
	if c.Logging.Format != "" {
		return c.Logging.Format == "json"
	}
	return c.IsProduction()
}

// IsProduction reports whether the application is running in production mode.
func (c *ObservabilityConfig) IsProduction() bool {
	return c.Environment == "production"
}

// HasCheck reports whether the named health check is enabled.
func (c *HealthChecksConfig) HasCheck(name string) bool {
	if !c.Enabled {
		return false
	}
	for _, check := range c.Checks {
		if check == name {
			return true
		}
	}
	return false
}

// Package config manages environment variables.
//
// It reads variables (optionally from a `.env` file),
// loads them into structured Go types, and validates that
// required values are present so they can be reused across
// the application runtime.
//
// Responsibilities:
//   - Seed defaults so a bare `msys2-relay serve` works out of the box.
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate values so the app fails fast on bad config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it is loaded into the
	// process environment before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/deppfellow/msys2-relay/internal/msys2"
)

/*
	Env vars are read using the prefix MSYS2RELAY_.
	The prefix is removed, the rest is lowercased, and a double underscore
	marks one level of nesting:

	  MSYS2RELAY_SERVER__PORT            -> server.port
	  MSYS2RELAY_UPSTREAM__BREAKER__ENABLED -> upstream.breaker.enabled

	Single underscores stay inside the key name (read_timeout, base_url).
*/

// EnvPrefix is the prefix every recognised environment variable carries.
const EnvPrefix = "MSYS2RELAY_"

// ServiceName identifies this service in logs, traces and metrics.
const ServiceName = "msys2-relay"

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from.
// The `validate:"..."` tags are enforced by go-playground/validator.
type Config struct {
	Primary       Primary             `koanf:"primary" validate:"required"`
	Server        ServerConfig        `koanf:"server" validate:"required"`
	Upstream      UpstreamConfig      `koanf:"upstream" validate:"required"`
	Observability ObservabilityConfig `koanf:"observability" validate:"required"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are whole seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1"`
}

// UpstreamConfig describes the single repository host being relayed.
type UpstreamConfig struct {
	// BaseURL is scheme + host (+ optional path prefix). Package paths are
	// appended as /{environment}/{architecture}/{package}.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Timeout bounds one upstream GET, including reading the body.
	Timeout time.Duration `koanf:"timeout" validate:"required,min=1s"`

	// MaxIdleConns caps pooled keep-alive connections to the upstream.
	MaxIdleConns int `koanf:"max_idle_conns" validate:"min=0"`

	// MaxBodyBytes caps a buffered 200 body. 0 disables the cap.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=0"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the upstream.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxRequests is how many trial requests pass while half-open.
	MaxRequests uint32 `koanf:"max_requests" validate:"min=1"`

	// Interval is the closed-state window after which failure counts reset.
	Interval time.Duration `koanf:"interval" validate:"min=0"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// FailureThreshold is the number of consecutive transport failures that
	// opens the breaker.
	FailureThreshold uint32 `koanf:"failure_threshold" validate:"min=1"`
}

// defaults returns the flat key/value defaults loaded before env vars.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env": "development",

		"server.port":                 "8080",
		"server.read_timeout":         30,
		"server.write_timeout":        60,
		"server.idle_timeout":         120,
		"server.cors_allowed_origins": []string{"*"},

		"upstream.base_url":       msys2.DefaultBaseURL,
		"upstream.timeout":        "30s",
		"upstream.max_idle_conns": 32,
		"upstream.max_body_bytes": 1 << 30,

		"upstream.breaker.enabled":           true,
		"upstream.breaker.max_requests":      1,
		"upstream.breaker.interval":          "60s",
		"upstream.breaker.timeout":           "30s",
		"upstream.breaker.failure_threshold": 5,

		"observability.logging.level":            "",
		"observability.logging.format":           "",
		"observability.logging.file.max_size":    100,
		"observability.logging.file.max_backups": 3,
		"observability.logging.file.max_age":     28,
		"observability.logging.file.compress":    true,

		"observability.new_relic.app_log_forwarding_enabled":  true,
		"observability.new_relic.distributed_tracing_enabled": true,
		"observability.new_relic.debug_logging":               false,

		"observability.health_checks.enabled": true,
		"observability.health_checks.timeout": "5s",
		"observability.health_checks.checks":  []string{},
	}
}

// envKey turns MSYS2RELAY_UPSTREAM__BASE_URL into upstream.base_url.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig loads defaults and environment variables, unmarshals them into
// Config, and validates the result.
func LoadConfig() (*Config, error) {
	return load(env.Provider(EnvPrefix, ".", envKey))
}

func load(p koanf.Provider) (*Config, error) {
	// "." is the key-path delimiter: "server.port" means Config.Server.Port.
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("could not load config defaults: %w", err)
	}

	if err := k.Load(p, nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Comma-separated env values arrive as one string; split them so
	// MSYS2RELAY_SERVER__CORS_ALLOWED_ORIGINS=a,b works.
	for _, key := range []string{"server.cors_allowed_origins", "observability.health_checks.checks"} {
		if s, ok := k.Get(key).(string); ok {
			if err := k.Set(key, splitList(s)); err != nil {
				return nil, fmt.Errorf("could not split %s: %w", key, err)
			}
		}
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Service name and environment are forced so telemetry is consistent.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

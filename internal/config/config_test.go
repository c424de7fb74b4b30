package config

import (
	"testing"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/msys2-relay/internal/msys2"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := load(confmap.Provider(map[string]interface{}{}, "."))

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Primary.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, msys2.DefaultBaseURL, cfg.Upstream.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, int64(1<<30), cfg.Upstream.MaxBodyBytes)
	assert.True(t, cfg.Upstream.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Upstream.Breaker.FailureThreshold)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "development", cfg.Observability.Environment)
	assert.Equal(t, "debug", cfg.Observability.GetLogLevel())
	assert.False(t, cfg.Observability.UseJSON())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("MSYS2RELAY_PRIMARY__ENV", "production")
	t.Setenv("MSYS2RELAY_SERVER__PORT", "9090")
	t.Setenv("MSYS2RELAY_SERVER__CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MSYS2RELAY_UPSTREAM__BASE_URL", "https://mirror.example.org/msys2")
	t.Setenv("MSYS2RELAY_UPSTREAM__TIMEOUT", "5s")
	t.Setenv("MSYS2RELAY_UPSTREAM__BREAKER__ENABLED", "false")
	t.Setenv("MSYS2RELAY_OBSERVABILITY__HEALTH_CHECKS__CHECKS", "upstream")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Primary.Env)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "https://mirror.example.org/msys2", cfg.Upstream.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Upstream.Breaker.Enabled)
	assert.True(t, cfg.Observability.HealthChecks.HasCheck(HealthCheckUpstream))
	assert.Equal(t, "info", cfg.Observability.GetLogLevel())
	assert.True(t, cfg.Observability.UseJSON())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{name: "bad base url", values: map[string]interface{}{"upstream.base_url": "not a url"}},
		{name: "upstream timeout too small", values: map[string]interface{}{"upstream.timeout": "10ms"}},
		{name: "bad log level", values: map[string]interface{}{"observability.logging.level": "verbose"}},
		{name: "bad log format", values: map[string]interface{}{"observability.logging.format": "xml"}},
		{name: "unknown health check", values: map[string]interface{}{"observability.health_checks.checks": []string{"database"}}},
		{name: "negative body limit", values: map[string]interface{}{"upstream.max_body_bytes": -1}},
		{name: "empty port", values: map[string]interface{}{"server.port": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(confmap.Provider(tt.values, "."))
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.read_timeout", envKey("MSYS2RELAY_SERVER__READ_TIMEOUT"))
	assert.Equal(t, "upstream.breaker.failure_threshold", envKey("MSYS2RELAY_UPSTREAM__BREAKER__FAILURE_THRESHOLD"))
	assert.Equal(t, "primary.env", envKey("MSYS2RELAY_PRIMARY__ENV"))
}

func TestHealthChecksConfig_HasCheck(t *testing.T) {
	c := HealthChecksConfig{Enabled: false, Checks: []string{HealthCheckUpstream}}
	assert.False(t, c.HasCheck(HealthCheckUpstream), "disabled checks never run")

	c.Enabled = true
	assert.True(t, c.HasCheck(HealthCheckUpstream))
	assert.False(t, c.HasCheck("redis"))
}

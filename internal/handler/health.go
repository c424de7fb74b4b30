package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/config"
	"github.com/deppfellow/msys2-relay/internal/middleware"
	"github.com/deppfellow/msys2-relay/internal/server"
)

// HealthHandler serves /status for load balancers and uptime monitors.
type HealthHandler struct {
	Handler
}

// NewHealthHandler constructs a HealthHandler with access to shared app dependencies.
func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth returns the service status and the configured checks.
//
// The upstream circuit breaker state is always reported. The "upstream"
// check (a HEAD on the base URL) only runs when listed in
// observability.health_checks.checks. Any failing check turns the
// response into 503.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := make(map[string]interface{})
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"breaker":     h.server.Upstream.BreakerState(),
		"checks":      checks,
	}

	isHealthy := true
	hc := h.server.Config.Observability.HealthChecks

	if hc.Enabled && hc.HasCheck(config.HealthCheckUpstream) {
		ctx, cancel := context.WithTimeout(c.Request().Context(), hc.Timeout)
		defer cancel()

		checkStart := time.Now()
		status, err := h.server.Upstream.Ping(ctx, h.server.Config.Upstream.BaseURL)
		elapsed := time.Since(checkStart)

		if err != nil {
			checks[config.HealthCheckUpstream] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": elapsed.String(),
				"error":         err.Error(),
			}
			isHealthy = false

			logger.Error().
				Err(err).
				Dur("response_time", elapsed).
				Msg("upstream health check failed")

			if app := h.server.LoggerService.GetApplication(); app != nil {
				app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
					"check_type":       config.HealthCheckUpstream,
					"operation":        "health_check",
					"error_type":       "upstream_unreachable",
					"response_time_ms": elapsed.Milliseconds(),
					"error_message":    err.Error(),
				})
			}
		} else {
			// Any HTTP answer means the host is reachable.
			checks[config.HealthCheckUpstream] = map[string]interface{}{
				"status":        "healthy",
				"response_time": elapsed.String(),
				"http_status":   status,
			}

			logger.Debug().
				Dur("response_time", elapsed).
				Int("http_status", status).
				Msg("upstream health check passed")
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

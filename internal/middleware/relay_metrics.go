package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deppfellow/msys2-relay/internal/errs"
	"github.com/deppfellow/msys2-relay/internal/metrics"
	"github.com/deppfellow/msys2-relay/internal/msys2"
	"github.com/deppfellow/msys2-relay/internal/server"
)

// RelayMetricsMiddleware records the outcome of every package request.
type RelayMetricsMiddleware struct {
	server *server.Server
}

func NewRelayMetricsMiddleware(s *server.Server) *RelayMetricsMiddleware {
	return &RelayMetricsMiddleware{
		server: s,
	}
}

// Record counts the request under its environment and outcome. Errors are
// classified before the global error handler turns them into responses.
func (r *RelayMetricsMiddleware) Record() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			outcome := Outcome(err)
			r.server.Metrics.RecordRelay(c.Param("environment"), outcome)

			if outcome == metrics.OutcomeCircuitOpen {
				r.RecordCircuitOpenHit(c.Path())
			}

			return err
		}
	}
}

// RecordCircuitOpenHit sends a New Relic custom event for a request
// rejected by the open breaker.
func (r *RelayMetricsMiddleware) RecordCircuitOpenHit(endpoint string) {
	if app := r.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("UpstreamCircuitOpen", map[string]interface{}{
			"endpoint": endpoint,
		})
	}
}

// Outcome maps a package handler result to a metrics outcome label.
func Outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		return metrics.OutcomeError
	}

	switch {
	case httpErr.NoBody:
		return metrics.OutcomeUpstreamStatus
	case httpErr.Code == string(msys2.InvalidEnvironment):
		return metrics.OutcomeInvalidEnvironment
	case httpErr.Code == string(msys2.InvalidArchitecture):
		return metrics.OutcomeInvalidArchitecture
	case httpErr.Code == string(msys2.InvalidPackageName):
		return metrics.OutcomeInvalidPackageName
	case httpErr.Code == errs.CodeUpstreamCircuitOpen:
		return metrics.OutcomeCircuitOpen
	case httpErr.Code == errs.CodeUpstreamUnreachable:
		return metrics.OutcomeUpstreamUnreachable
	case httpErr.Code == errs.CodeUpstreamTooLarge:
		return metrics.OutcomeUpstreamTooLarge
	default:
		return metrics.OutcomeError
	}
}

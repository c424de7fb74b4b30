package middleware

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/msys2-relay/internal/server"
)

// Middlewares groups every middleware component so router setup builds
// them once from the shared *server.Server.
type Middlewares struct {
	// Global holds CORS, request logging, recovery, secure headers and the
	// global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer attaches a request-scoped logger.
	ContextEnhancer *ContextEnhancer

	// Tracing provides New Relic middleware. It degrades to a no-op when
	// New Relic is not configured.
	Tracing *TracingMiddleware

	// RelayMetrics counts package requests by outcome.
	RelayMetrics *RelayMetricsMiddleware
}

// NewMiddlewares constructs all middleware components.
func NewMiddlewares(s *server.Server) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RelayMetrics:    NewRelayMetricsMiddleware(s),
	}
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/handler"
	"github.com/deppfellow/msys2-relay/internal/server"
)

// registerSystemRoutes registers endpoints that are not part of the relay:
// health, Prometheus metrics, and the API docs.
func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)

	r.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	r.GET("/static/openapi.json", h.OpenAPI.ServeOpenAPISpec)
}

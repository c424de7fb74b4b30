// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the route groups,
// mapping specific paths to their corresponding handlers.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/handler"
	"github.com/deppfellow/msys2-relay/internal/middleware"
	"github.com/deppfellow/msys2-relay/internal/server"
)

// NewRouter builds the Echo instance with the full middleware chain and
// every route.
//
// Middleware order matters: RequestID and New Relic run before the
// context enhancer so the request logger carries their IDs.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
	)

	registerSystemRoutes(router, s, h)
	registerPackageRoutes(router, h, middlewares)
	registerAPIRoutes(router, h)

	return router
}

// registerPackageRoutes mounts the relay under /msys2. HEAD fetches the
// file like GET but writes headers only.
func registerPackageRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	msys2Router := r.Group("/msys2", m.RelayMetrics.Record(), middleware.UnescapePathParams())

	getPackageFile := handler.HandleRelay[handler.PackageFileRequest](
		h.Package.Handler,
		h.Package.GetPackageFile,
		http.StatusOK,
	)

	msys2Router.GET("/:environment/:architecture/:package", getPackageFile)
	msys2Router.HEAD("/:environment/:architecture/:package", getPackageFile)
}

// registerAPIRoutes mounts JSON helpers that never contact the upstream.
func registerAPIRoutes(r *echo.Echo, h *handler.Handlers) {
	v1 := r.Group("/api/v1", middleware.UnescapePathParams())

	v1.GET("/resolve/:environment/:architecture/:package", handler.Handle[handler.PackageFileRequest](
		h.Package.Handler,
		h.Package.ResolvePackageFile,
		http.StatusOK,
	))
}

package handler

import (
	"embed"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/server"
)

//go:embed static/openapi.html static/openapi.json
var staticFiles embed.FS

// OpenAPIHandler serves the API docs UI and the OpenAPI document it loads.
type OpenAPIHandler struct {
	Handler
}

// NewOpenAPIHandler constructs an OpenAPIHandler with access to shared dependencies.
func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPIUI serves the embedded docs page with caching disabled.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	templateBytes, err := staticFiles.ReadFile("static/openapi.html")
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err := c.HTMLBlob(http.StatusOK, templateBytes); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}

// ServeOpenAPISpec serves the embedded openapi.json.
func (h *OpenAPIHandler) ServeOpenAPISpec(c echo.Context) error {
	specBytes, err := staticFiles.ReadFile("static/openapi.json")
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI document: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")

	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, specBytes)
}

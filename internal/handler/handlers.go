package handler

import (
	"github.com/deppfellow/msys2-relay/internal/server"
	"github.com/deppfellow/msys2-relay/internal/service"
)

// Handlers groups every HTTP handler so router setup receives one value.
type Handlers struct {
	Package *PackageHandler
	Health  *HealthHandler  // Health serves /status.
	OpenAPI *OpenAPIHandler // OpenAPI serves /docs and the OpenAPI document.
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Package: NewPackageHandler(s, services.Package),
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
	}
}

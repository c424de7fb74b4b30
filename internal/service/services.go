// Package service contains the business logic.
//
// It sits between the handler layer and the upstream client.
// It receives validated data from the handler, builds the
// upstream request, and translates what comes back into the
// response the caller should see.
package service

import (
	"github.com/deppfellow/msys2-relay/internal/server"
)

// Services groups every service so the handler layer receives one value.
type Services struct {
	Package *PackageService
}

func NewServices(s *server.Server) (*Services, error) {
	return &Services{
		Package: NewPackageService(s),
	}, nil
}

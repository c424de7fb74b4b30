package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/msys2"
	"github.com/deppfellow/msys2-relay/internal/server"
	"github.com/deppfellow/msys2-relay/internal/service"
	"github.com/deppfellow/msys2-relay/internal/validation"
)

// PackageFileRequest is bound from /msys2/:environment/:architecture/:package.
type PackageFileRequest struct {
	Environment  string `param:"environment"`
	Architecture string `param:"architecture"`
	Package      string `param:"package"`
}

// Validate runs the repository rules during binding. PackageService checks
// the address again, so callers outside the HTTP pipeline get the same rules.
func (r *PackageFileRequest) Validate() error {
	return validation.Struct(r.PackageFile())
}

// PackageFile returns the repository address named by the request.
func (r *PackageFileRequest) PackageFile() msys2.PackageFile {
	return msys2.PackageFile{
		Environment:  r.Environment,
		Architecture: r.Architecture,
		Package:      r.Package,
	}
}

type PackageHandler struct {
	Handler
	packageService *service.PackageService
}

func NewPackageHandler(s *server.Server, packageService *service.PackageService) *PackageHandler {
	return &PackageHandler{
		Handler:        NewHandler(s),
		packageService: packageService,
	}
}

// GetPackageFile relays one file from the upstream repository.
func (h *PackageHandler) GetPackageFile(c echo.Context, req *PackageFileRequest) (*service.PackageFile, error) {
	return h.packageService.GetPackageFile(c.Request().Context(), req.PackageFile())
}

// ResolvePackageFile reports the upstream URL an address maps to without
// fetching it.
func (h *PackageHandler) ResolvePackageFile(c echo.Context, req *PackageFileRequest) (*service.ResolvedPackage, error) {
	resolved, err := h.packageService.Resolve(req.PackageFile())
	if err != nil {
		return nil, validation.ToHTTPError(err)
	}
	return resolved, nil
}

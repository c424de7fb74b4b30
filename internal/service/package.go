package service

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/deppfellow/msys2-relay/internal/errs"
	"github.com/deppfellow/msys2-relay/internal/lib/upstream"
	"github.com/deppfellow/msys2-relay/internal/msys2"
	"github.com/deppfellow/msys2-relay/internal/server"
	"github.com/deppfellow/msys2-relay/internal/validation"
)

// Fetcher performs one upstream GET. *upstream.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*upstream.Result, error)
}

// PackageFile is a successfully relayed upstream file.
type PackageFile struct {
	Body []byte

	// ContentType is only meaningful when HasContentType is true.
	ContentType    string
	HasContentType bool
}

// ResolvedPackage is a validated address and the upstream URL it maps to.
type ResolvedPackage struct {
	Environment  string `json:"environment"`
	Architecture string `json:"architecture"`
	Package      string `json:"package"`
	URL          string `json:"url"`
}

// PackageService relays package files from the upstream repository.
type PackageService struct {
	baseURL string
	fetcher Fetcher
}

// NewPackageService wires the service to the server's upstream client.
func NewPackageService(s *server.Server) *PackageService {
	return NewPackageServiceWithFetcher(s.Config.Upstream.BaseURL, s.Upstream)
}

// NewPackageServiceWithFetcher builds a service around any Fetcher.
func NewPackageServiceWithFetcher(baseURL string, fetcher Fetcher) *PackageService {
	return &PackageService{
		baseURL: baseURL,
		fetcher: fetcher,
	}
}

// UpstreamURL returns the URL a validated file is fetched from.
func (s *PackageService) UpstreamURL(f msys2.PackageFile) string {
	return msys2.UpstreamURL(s.baseURL, f)
}

// Resolve validates f and returns the URL it would be fetched from. Nothing
// is fetched. Errors are *msys2.ValidationError.
func (s *PackageService) Resolve(f msys2.PackageFile) (*ResolvedPackage, error) {
	f, err := msys2.Validate(f.Environment, f.Architecture, f.Package)
	if err != nil {
		return nil, err
	}

	return &ResolvedPackage{
		Environment:  f.Environment,
		Architecture: f.Architecture,
		Package:      f.Package,
		URL:          s.UpstreamURL(f),
	}, nil
}

// GetPackageFile validates f, fetches it once, and translates the result.
//
// Errors are *errs.HTTPError (possibly wrapped):
//   - 400 for an invalid address; nothing is fetched
//   - the upstream status with no body for any non-200 response
//   - 502 when the upstream cannot be reached, times out, or sends a body
//     over the size limit
//   - 503 while the upstream circuit breaker is open
func (s *PackageService) GetPackageFile(ctx context.Context, f msys2.PackageFile) (*PackageFile, error) {
	resolved, err := s.Resolve(f)
	if err != nil {
		var vErr *msys2.ValidationError
		if errors.As(err, &vErr) {
			return nil, validation.AddressError(vErr)
		}
		return nil, err
	}

	res, err := s.fetcher.Fetch(ctx, resolved.URL)
	if err != nil {
		switch {
		case errors.Is(err, upstream.ErrCircuitOpen):
			return nil, errors.Wrap(errs.NewUpstreamCircuitOpenError(), err.Error())
		case errors.Is(err, upstream.ErrBodyTooLarge):
			return nil, errors.Wrap(errs.NewUpstreamTooLargeError(), err.Error())
		case errors.Is(err, upstream.ErrTimeout):
			return nil, errors.Wrap(errs.NewUpstreamUnreachableError().WithMessage("Upstream repository timed out"), err.Error())
		}
		// Transport failures and abandoned requests both end up here.
		return nil, errors.Wrap(errs.NewUpstreamUnreachableError(), err.Error())
	}

	if res.StatusCode != http.StatusOK {
		return nil, errs.NewUpstreamStatusError(res.StatusCode)
	}

	return &PackageFile{
		Body:           res.Body,
		ContentType:    res.ContentType,
		HasContentType: res.HasContentType,
	}, nil
}

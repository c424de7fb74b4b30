package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/msys2-relay/internal/config"
	"github.com/deppfellow/msys2-relay/internal/handler"
	"github.com/deppfellow/msys2-relay/internal/server"
	"github.com/deppfellow/msys2-relay/internal/service"
)

// fakeRepo records every path it is asked for and answers with respond.
type fakeRepo struct {
	mu      sync.Mutex
	paths   []string
	respond func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.EscapedPath())
	f.mu.Unlock()
	f.respond(w, r)
}

func (f *fakeRepo) hits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

type testEnv struct {
	server *server.Server
	router *echo.Echo
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()

	t.Setenv("MSYS2RELAY_UPSTREAM__BASE_URL", baseURL)
	t.Setenv("MSYS2RELAY_UPSTREAM__TIMEOUT", "2s")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	logger := zerolog.Nop()
	srv, err := server.New(cfg, &logger, nil)
	require.NoError(t, err)

	services, err := service.NewServices(srv)
	require.NoError(t, err)

	return &testEnv{
		server: srv,
		router: NewRouter(srv, handler.NewHandlers(srv, services)),
	}
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func serveData(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.WriteString(w, "DATA")
}

func TestRelay_OK(t *testing.T) {
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	rec := env.get("/msys2/msys/x86_64/bash-5.1-1-x86_64.pkg.tar.zst")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DATA", rec.Body.String())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"/msys/x86_64/bash-5.1-1-x86_64.pkg.tar.zst"}, repo.hits())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.Metrics.RelayRequestsTotal.WithLabelValues("msys", "ok")))
}

func TestRelay_NoUpstreamContentType(t *testing.T) {
	repo := &fakeRepo{respond: func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = io.WriteString(w, "<html>not sniffed</html>")
	}}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	rec := env.get("/msys2/mingw/ucrt64/pkg.db")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>not sniffed</html>", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestRelay_UpstreamStatusPassthrough(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		repo := &fakeRepo{respond: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, "upstream error page")
		}}
		upstream := httptest.NewServer(repo)
		env := newTestEnv(t, upstream.URL)

		rec := env.get("/msys2/msys/x86_64/missing.pkg.tar.zst")

		assert.Equal(t, status, rec.Code)
		assert.Empty(t, rec.Body.String(), "upstream body is never relayed for status %d", status)
		assert.Len(t, repo.hits(), 1)

		upstream.Close()
	}
}

func TestRelay_ValidationFailuresNeverReachUpstream(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		code    string
		message string
		field   string
	}{
		{
			name:    "unknown environment",
			path:    "/msys2/cygwin/x86_64/a.pkg",
			code:    "INVALID_ENVIRONMENT",
			message: `"cygwin" is not a valid msys2 environment`,
			field:   "environment",
		},
		{
			name:    "environment is case sensitive",
			path:    "/msys2/MSYS/x86_64/a.pkg",
			code:    "INVALID_ENVIRONMENT",
			message: `"MSYS" is not a valid msys2 environment`,
			field:   "environment",
		},
		{
			name:    "architecture of the other environment",
			path:    "/msys2/msys/clang64/a.pkg",
			code:    "INVALID_ARCHITECTURE",
			message: `"clang64" is not a valid msys architecture`,
			field:   "architecture",
		},
		{
			name:    "unknown mingw architecture",
			path:    "/msys2/mingw/arm/a.pkg",
			code:    "INVALID_ARCHITECTURE",
			message: `"arm" is not a valid mingw architecture`,
			field:   "architecture",
		},
		{
			name:    "package with a forbidden character",
			path:    "/msys2/mingw/ucrt64/a;b",
			code:    "INVALID_PACKAGE_NAME",
			message: `"a;b" is not a valid package name`,
			field:   "package",
		},
		{
			name:    "package with a percent-encoded slash",
			path:    "/msys2/mingw/ucrt64/a%2Fb",
			code:    "INVALID_PACKAGE_NAME",
			message: `"a/b" is not a valid package name`,
			field:   "package",
		},
		{
			name:    "escaped percent is decoded only once",
			path:    "/msys2/mingw/ucrt64/a%2541",
			code:    "INVALID_PACKAGE_NAME",
			message: `"a%41" is not a valid package name`,
			field:   "package",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{respond: serveData}
			upstream := httptest.NewServer(repo)
			defer upstream.Close()
			env := newTestEnv(t, upstream.URL)

			rec := env.get(tt.path)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body["code"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}

			fieldErrors, ok := body["errors"].([]interface{})
			require.True(t, ok)
			require.Len(t, fieldErrors, 1)
			assert.Equal(t, tt.field, fieldErrors[0].(map[string]interface{})["field"])

			assert.Empty(t, repo.hits(), "invalid requests must not reach upstream")
		})
	}
}

func TestRelay_EncodesPackageName(t *testing.T) {
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	rec := env.get("/msys2/mingw/ucrt64/foo%20bar.pkg")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/mingw/ucrt64/foo%20bar.pkg"}, repo.hits())
}

func TestRelay_DecodesNonCanonicalEscapes(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		upstream string
	}{
		{name: "escaped underscore in architecture", path: "/msys2/msys/x86%5F64/a.b", upstream: "/msys/x86_64/a.b"},
		{name: "escaped dot in package", path: "/msys2/mingw/ucrt64/a%2Eb", upstream: "/mingw/ucrt64/a.b"},
		{name: "escaped letters in environment", path: "/msys2/%6Dsys/i686/bash.pkg", upstream: "/msys/i686/bash.pkg"},
		{name: "escaped space next to escaped dot", path: "/msys2/mingw/ucrt64/foo%20bar%2Epkg", upstream: "/mingw/ucrt64/foo%20bar.pkg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{respond: serveData}
			upstream := httptest.NewServer(repo)
			defer upstream.Close()
			env := newTestEnv(t, upstream.URL)

			rec := env.get(tt.path)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "DATA", rec.Body.String())
			assert.Equal(t, []string{tt.upstream}, repo.hits())
		})
	}
}

func TestRelay_EveryRequestFetches(t *testing.T) {
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	for i := 0; i < 2; i++ {
		rec := env.get("/msys2/msys/i686/bash.pkg")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Len(t, repo.hits(), 2)
}

func TestRelay_UpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	baseURL := upstream.URL
	upstream.Close()
	env := newTestEnv(t, baseURL)

	rec := env.get("/msys2/msys/x86_64/bash.pkg")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_UNREACHABLE", decodeError(t, rec)["code"])
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.Metrics.RelayRequestsTotal.WithLabelValues("msys", "upstream_unreachable")))
}

func TestRelay_BodyOverLimit(t *testing.T) {
	t.Setenv("MSYS2RELAY_UPSTREAM__MAX_BODY_BYTES", "3")
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	rec := env.get("/msys2/msys/x86_64/bash.pkg")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_BODY_TOO_LARGE", decodeError(t, rec)["code"])
	assert.NotContains(t, rec.Body.String(), "DATA")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.Metrics.RelayRequestsTotal.WithLabelValues("msys", "upstream_too_large")))
}

func TestRelay_IncompletePathIsNotFound(t *testing.T) {
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	rec := env.get("/msys2/msys/x86_64")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, repo.hits())
}

func TestResolveEndpoint(t *testing.T) {
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	rec := env.get("/api/v1/resolve/msys/x86_64/bash-5.1-1-x86_64.pkg.tar.zst")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, upstream.URL+"/msys/x86_64/bash-5.1-1-x86_64.pkg.tar.zst", body["url"])
	assert.Empty(t, repo.hits())

	rec = env.get("/api/v1/resolve/msys/ucrt64/a.pkg")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARCHITECTURE", decodeError(t, rec)["code"])
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = env.get("/status")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")

	rec := env.get("/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "closed", body["breaker"])
	assert.Empty(t, body["checks"])
}

func TestStatus_UpstreamCheck(t *testing.T) {
	t.Setenv("MSYS2RELAY_OBSERVABILITY__HEALTH_CHECKS__CHECKS", "upstream")

	t.Run("reachable", func(t *testing.T) {
		upstream := httptest.NewServer(http.NotFoundHandler())
		defer upstream.Close()
		env := newTestEnv(t, upstream.URL)

		rec := env.get("/status")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"http_status":404`)
	})

	t.Run("unreachable", func(t *testing.T) {
		upstream := httptest.NewServer(http.NotFoundHandler())
		baseURL := upstream.URL
		upstream.Close()
		env := newTestEnv(t, baseURL)

		rec := env.get("/status")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unhealthy"`)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	repo := &fakeRepo{respond: serveData}
	upstream := httptest.NewServer(repo)
	defer upstream.Close()
	env := newTestEnv(t, upstream.URL)

	env.get("/msys2/msys/x86_64/bash.pkg")
	rec := env.get("/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `msys2_relay_requests_total{environment="msys",outcome="ok"} 1`)
}

func TestDocs(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")

	rec := env.get("/docs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))

	rec = env.get("/static/openapi.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc["paths"], "/msys2/{environment}/{architecture}/{package}")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, "http://127.0.0.1:1")

	rec := env.get("/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec)["code"])
}

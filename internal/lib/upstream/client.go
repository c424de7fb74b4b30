// Package upstream fetches files from the package repository host.
//
// It performs exactly one GET per call: no retry, no cache. A circuit
// breaker may refuse the call up front when the host keeps failing at the
// transport level.
package upstream

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/deppfellow/msys2-relay/internal/config"
	"github.com/deppfellow/msys2-relay/internal/metrics"
)

// breakerName labels the breaker in logs.
const breakerName = "msys2-upstream"

var (
	// ErrUnreachable wraps every transport-level failure: DNS, refused
	// connections, resets, timeouts, truncated bodies.
	ErrUnreachable = errors.New("upstream unreachable")

	// ErrTimeout is the ErrUnreachable case where the upstream did not answer
	// within the configured timeout. errors.Is(err, ErrUnreachable) holds for it.
	ErrTimeout = errors.Wrap(ErrUnreachable, "timeout")

	// ErrBodyTooLarge is returned when a 200 body exceeds the configured cap.
	// The upstream answered, so it does not count against the breaker.
	ErrBodyTooLarge = errors.New("upstream body exceeds size limit")

	// ErrCircuitOpen is returned without a network call while the breaker is open.
	ErrCircuitOpen = errors.New("upstream circuit breaker is open")
)

// Result is what one upstream GET produced.
type Result struct {
	StatusCode int

	// ContentType is the upstream Content-Type header; HasContentType is
	// false when the upstream sent none.
	ContentType    string
	HasContentType bool

	// Body is only read for 200 responses; any other body is discarded.
	Body []byte
}

// Client is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	maxBodyBytes int64
	breaker      *gobreaker.CircuitBreaker
	metrics      *metrics.Metrics
	logger       *zerolog.Logger
}

// NewClient builds a Client from the upstream config.
//
// metrics may be nil.
func NewClient(cfg config.UpstreamConfig, logger *zerolog.Logger, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			// The New Relic round tripper records an external segment when
			// the request context carries a transaction, and is a plain
			// pass-through otherwise.
			Transport: newrelic.NewRoundTripper(transport),
			Timeout:   cfg.Timeout,
		},
		maxBodyBytes: cfg.MaxBodyBytes,
		metrics:      m,
		logger:       logger,
	}

	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, logger, m)
	}

	return c
}

func newBreaker(cfg config.BreakerConfig, logger *zerolog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("upstream circuit breaker state change")
			m.SetBreakerState(float64(to))
		},
		// Any HTTP response counts as success: a 404 or 500 means the
		// host answered. Only transport failures trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnreachable)
		},
	})
}

// BreakerState returns "closed", "half-open", "open", or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Fetch issues one GET to rawURL.
//
// Errors are ErrUnreachable (wrapped with the cause) or ErrCircuitOpen.
// A non-200 status is not an error: it comes back in Result.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if c.breaker == nil {
		return c.fetch(ctx, rawURL)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Wrap(ErrCircuitOpen, err.Error())
	}
	if err != nil {
		return nil, err
	}
	return out.(*Result), nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) (*Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		// Only reachable with a malformed base URL, which config validation rejects.
		return nil, errors.Wrap(err, "building upstream request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(0, time.Since(start), 0)
		// The caller went away; that says nothing about the upstream.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "GET %s", rawURL)
		}
		return nil, errors.Wrapf(transportError(err), "GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	result := &Result{StatusCode: resp.StatusCode}
	if ct, ok := resp.Header["Content-Type"]; ok && len(ct) > 0 {
		result.ContentType = ct[0]
		result.HasContentType = true
	}

	if resp.StatusCode == http.StatusOK {
		body, err := c.readBody(resp)
		if err != nil {
			c.metrics.RecordUpstream(0, time.Since(start), 0)
			if errors.Is(err, ErrBodyTooLarge) {
				return nil, errors.Wrapf(err, "GET %s", rawURL)
			}
			return nil, errors.Wrapf(transportError(err), "reading body of %s: %v", rawURL, err)
		}
		result.Body = body
	} else {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	}

	duration := time.Since(start)
	c.metrics.RecordUpstream(resp.StatusCode, duration, len(result.Body))

	c.requestLogger(ctx).Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(result.Body)).
		Dur("duration", duration).
		Msg("upstream fetch completed")

	return result, nil
}

// readBody reads a 200 body whole, refusing anything over maxBodyBytes.
// A declared Content-Length over the cap is refused before reading.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	if c.maxBodyBytes <= 0 {
		return io.ReadAll(resp.Body)
	}

	if resp.ContentLength > c.maxBodyBytes {
		return nil, errors.Wrapf(ErrBodyTooLarge, "content length %d over %d", resp.ContentLength, c.maxBodyBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, errors.Wrapf(ErrBodyTooLarge, "body over %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

// transportError picks ErrTimeout or ErrUnreachable for a failed round trip.
func transportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrUnreachable
}

// requestLogger prefers the request-scoped logger stored in ctx so upstream
// lines carry the request id.
func (c *Client) requestLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return c.logger
}

// Ping sends a HEAD to baseURL and reports transport failures only.
// Used by the health endpoint; package requests never call it.
func (c *Client) Ping(ctx context.Context, baseURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return 0, errors.Wrap(err, "building upstream ping")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrapf(ErrUnreachable, "HEAD %s: %v", baseURL, err)
	}
	resp.Body.Close()

	return resp.StatusCode, nil
}

// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deppfellow/msys2-relay/internal/msys2"
)

const namespace = "msys2_relay"

// Relay outcomes, used as the "outcome" label.
const (
	OutcomeOK                  = "ok"
	OutcomeInvalidEnvironment  = "invalid_environment"
	OutcomeInvalidArchitecture = "invalid_architecture"
	OutcomeInvalidPackageName  = "invalid_package_name"
	OutcomeUpstreamStatus      = "upstream_status"
	OutcomeUpstreamUnreachable = "upstream_unreachable"
	OutcomeUpstreamTooLarge    = "upstream_too_large"
	OutcomeCircuitOpen         = "circuit_open"
	OutcomeError               = "error"
)

// Metrics holds every collector the relay records into.
type Metrics struct {
	registry *prometheus.Registry

	// RelayRequestsTotal counts package requests by environment and outcome.
	RelayRequestsTotal *prometheus.CounterVec

	// UpstreamRequestDuration observes upstream GET latency by status class
	// ("2xx", "4xx", "error", ...).
	UpstreamRequestDuration *prometheus.HistogramVec

	// UpstreamResponseBytes observes relayed body sizes.
	UpstreamResponseBytes prometheus.Histogram

	// CircuitBreakerState is 0=closed, 1=half-open, 2=open.
	CircuitBreakerState prometheus.Gauge
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RelayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of package file requests by outcome",
			},
			[]string{"environment", "outcome"},
		),
		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of upstream GET requests",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status_class"},
		),
		UpstreamResponseBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_response_bytes",
				Help:      "Size of relayed upstream bodies",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		CircuitBreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_circuit_breaker_state",
				Help:      "Current state of the upstream circuit breaker (0=closed, 1=half-open, 2=open)",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRelay counts one package request.
func (m *Metrics) RecordRelay(environment, outcome string) {
	if m == nil {
		return
	}
	// Unknown environments collapse to one label value to keep cardinality bounded.
	if !msys2.IsValidEnvironment(environment) {
		environment = "invalid"
	}
	m.RelayRequestsTotal.WithLabelValues(environment, outcome).Inc()
}

// RecordUpstream observes one upstream call. status is 0 for transport errors.
func (m *Metrics) RecordUpstream(status int, duration time.Duration, bodySize int) {
	if m == nil {
		return
	}
	m.UpstreamRequestDuration.WithLabelValues(StatusClass(status)).Observe(duration.Seconds())
	if status == http.StatusOK {
		m.UpstreamResponseBytes.Observe(float64(bodySize))
	}
}

// SetBreakerState records the breaker state as a number.
func (m *Metrics) SetBreakerState(state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Set(state)
}

// StatusClass maps 404 to "4xx" and 0 to "error".
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

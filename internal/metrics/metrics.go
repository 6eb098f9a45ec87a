// Package metrics holds the Prometheus collectors the Studio exposes on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Studio collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	records    *prometheus.GaugeVec
	requests   *prometheus.HistogramVec
	streamed   prometheus.Counter
}

// New creates collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_catalog_operations_total",
			Help: "Catalog operations by catalog and operation",
		}, []string{"catalog", "op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_catalog_failures_total",
			Help: "Failed catalog operations by catalog, operation and reason",
		}, []string{"catalog", "op", "reason"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "studio_catalog_records",
			Help: "Records in a catalog as of the last listing",
		}, []string{"catalog"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studio_http_request_duration_seconds",
			Help:    "Duration of Studio API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		streamed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_stream_events_total",
			Help: "Catalog events pushed to SSE subscribers",
		}),
	}
	m.registry.MustRegister(m.operations, m.failures, m.records, m.requests, m.streamed)
	return m
}

// Operation counts a successful catalog operation.
func (m *Metrics) Operation(catalog, op string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(catalog, op).Inc()
}

// Failure counts a failed catalog operation.
func (m *Metrics) Failure(catalog, op, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(catalog, op, reason).Inc()
}

// Records sets the record gauge.
func (m *Metrics) Records(catalog string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(catalog).Set(float64(n))
}

// Request observes an API request.
func (m *Metrics) Request(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, http.StatusText(status)).Observe(d.Seconds())
}

// Streamed counts an event pushed to subscribers.
func (m *Metrics) Streamed() {
	if m == nil {
		return
	}
	m.streamed.Inc()
}

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

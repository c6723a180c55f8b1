// Package metrics exposes Prometheus instrumentation for llm-router.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks proxied request counts and latencies per provider.
//
// Exposed series:
//   - llmrouter_requests_total{provider,status}
//   - llmrouter_request_duration_seconds{provider}
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance backed by its own registry, so tests can
// build isolated instances without global collector collisions.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "llmrouter",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"provider", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "llmrouter",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// ObserveRequest records one completed proxied exchange.
func (m *Metrics) ObserveRequest(provider string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(provider, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// Handler returns the /metrics endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// ABOUTME: Prometheus collectors for tool dispatch, backend calls, and auth failures.
// ABOUTME: A nil *Metrics is valid and records nothing.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls       *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wolfram_gateway_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wolfram_gateway_backend_requests_total",
			Help: "Outbound backend requests by backend, operation, and outcome.",
		}, []string{"backend", "op", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wolfram_gateway_backend_latency_ms",
			Help:    "Outbound backend latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		}, []string{"backend", "op"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wolfram_gateway_auth_failures_total",
			Help: "Rejected requests by authentication failure reason.",
		}, []string{"reason"}),
	}
	r.MustRegister(m.toolCalls, m.backendRequests, m.backendLatency, m.authFailures)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveToolCall counts one dispatch.
func (m *Metrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveBackend records one outbound call.
func (m *Metrics) ObserveBackend(backend, op, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(backend, op, outcome).Inc()
	m.backendLatency.WithLabelValues(backend, op).Observe(float64(dur.Milliseconds()))
}

// ObserveAuthFailure counts one rejected request.
func (m *Metrics) ObserveAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

// ABOUTME: Tests for the Prometheus collectors
// ABOUTME: Verifies counters increment and that a nil Metrics is a no-op

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveToolCall(t *testing.T) {
	m := New()
	m.ObserveToolCall("divide", "ok")
	m.ObserveToolCall("divide", "ok")
	m.ObserveToolCall("divide", "invalid")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("divide", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("divide", "invalid")))
}

func TestObserveBackend(t *testing.T) {
	m := New()
	m.ObserveBackend("execution", "execute", "timeout", 1500*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("execution", "execute", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.backendLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveToolCall("add", "ok")
		m.ObserveBackend("alpha", "query", "ok", time.Second)
		m.ObserveAuthFailure("Invalid token")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveAuthFailure("Missing Authorization header")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "wolfram_gateway_auth_failures_total")
}

// ABOUTME: Tests for the Gateway HTTP surface and lifecycle
// ABOUTME: Drives the wired handler end to end against fake backends

package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wolfram-gateway/internal/config"
)

const testSecret = "s3cret"

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExecution is an execution backend that counts every request.
type fakeExecution struct {
	*httptest.Server
	requests atomic.Int32
}

func newFakeExecution(t *testing.T) *fakeExecution {
	t.Helper()
	f := &fakeExecution{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy","version":"14.1","wolfram_available":true}`))
		case "/execute":
			_, _ = w.Write([]byte(`{"success":true,"output":"6","execution_time":0.012}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Auth.Token = testSecret
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestGateway(t *testing.T, mutate func(*config.Config)) *Gateway {
	t.Helper()
	gw, err := New(testConfig(t, mutate), testLogger(), WithVersion("1.2.3"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = gw.Shutdown(context.Background())
	})
	return gw
}

func serve(gw *Gateway, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, req)
	return rr
}

func mcpCall(body, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, testLogger())
	assert.Error(t, err)
}

func TestHealth_NoCredentialRequired(t *testing.T) {
	gw := newTestGateway(t, nil)

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, ServiceName, body.Service)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "required", body.Auth)
	assert.Equal(t, "/mcp", body.Endpoints["mcp"])
	assert.Equal(t, "/sse", body.Endpoints["sse"])
	assert.Contains(t, body.Tools, "wolfram_alpha")
	assert.Contains(t, body.Tools, "wolfram_execute")
	assert.Contains(t, body.Tools, "divide")
}

func TestHealth_AuthDisabled(t *testing.T) {
	gw := newTestGateway(t, func(c *config.Config) { c.Auth.Token = "" })

	var body HealthResponse
	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "disabled", body.Auth)
}

func TestMCP_RejectsWithoutDispatch(t *testing.T) {
	exec := newFakeExecution(t)
	gw := newTestGateway(t, func(c *config.Config) { c.Execution.BaseURL = exec.URL })

	call := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"wolfram_execute","arguments":{"code":"1+5"}}}`

	tests := []struct {
		name   string
		header string
		reason string
	}{
		{"missing header", "", "Missing Authorization header"},
		{"wrong scheme", "Basic abc", "Invalid Authorization header format. Expected: Bearer <token>"},
		{"wrong token", "Bearer nope", "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcpCall(call, "")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(gw, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
			assert.Equal(t, tt.reason, body["message"])
		})
	}

	assert.Equal(t, int32(0), exec.requests.Load())
}

func TestMCP_ExecuteEndToEnd(t *testing.T) {
	exec := newFakeExecution(t)
	gw := newTestGateway(t, func(c *config.Config) { c.Execution.BaseURL = exec.URL })

	rr := serve(gw, mcpCall(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"wolfram_execute","arguments":{"code":"1+5"}}}`, testSecret))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Content, 1)
	assert.Equal(t, "6\n\n*Execution time: 0.012s*", resp.Result.Content[0].Text)
	// health probe plus execute
	assert.Equal(t, int32(2), exec.requests.Load())
}

func TestMCP_MissingArgumentMakesNoBackendCall(t *testing.T) {
	exec := newFakeExecution(t)
	gw := newTestGateway(t, func(c *config.Config) { c.Execution.BaseURL = exec.URL })

	rr := serve(gw, mcpCall(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"wolfram_execute","arguments":{}}}`, testSecret))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing required argument")
	assert.Contains(t, rr.Body.String(), "code")
	assert.Equal(t, int32(0), exec.requests.Load())
}

func TestNotFound(t *testing.T) {
	gw := newTestGateway(t, nil)

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rr.Body.String())
}

func TestRateLimit(t *testing.T) {
	gw := newTestGateway(t, func(c *config.Config) {
		c.RateLimit.RequestsPerMinute = 60
		c.RateLimit.Burst = 1
	})

	ping := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	assert.Equal(t, http.StatusOK, serve(gw, mcpCall(ping, testSecret)).Code)

	rr := serve(gw, mcpCall(ping, testSecret))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// health is never limited
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(gw, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gw := newTestGateway(t, func(c *config.Config) { c.Metrics.Enabled = true })

	serve(gw, mcpCall(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"divide","arguments":{"a":1,"b":0}}}`, testSecret))
	serve(gw, mcpCall(`{"jsonrpc":"2.0","id":2,"method":"ping"}`, ""))

	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `wolfram_gateway_tool_calls_total{outcome="ok",tool="divide"} 1`)
	assert.Contains(t, rr.Body.String(), `wolfram_gateway_auth_failures_total`)
}

func TestMetricsDisabled(t *testing.T) {
	gw := newTestGateway(t, nil)
	rr := serve(gw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	gw := newTestGateway(t, func(c *config.Config) { c.CORS.AllowedOrigins = []string{"https://app.example.com"} })

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	rr := serve(gw, req)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	gw := newTestGateway(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gw.Serve(ctx, ln)
	}()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

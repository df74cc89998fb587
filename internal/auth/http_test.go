// ABOUTME: Tests for the bearer-token gate and its HTTP middleware
// ABOUTME: Covers every failure reason, disabled mode, and the 401 response shape

package auth

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret-token"

func headers(authorization string) http.Header {
	h := http.Header{}
	if authorization != "" {
		h.Set("Authorization", authorization)
	}
	return h
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Outcome
	}{
		{"missing header", "", Outcome{Reason: ReasonMissingHeader}},
		{"basic scheme", "Basic dXNlcjpwYXNz", Outcome{Reason: ReasonInvalidFormat}},
		{"token without scheme", testSecret, Outcome{Reason: ReasonInvalidFormat}},
		{"scheme without separator", "Bearer", Outcome{Reason: ReasonInvalidFormat}},
		{"bearer without token", "Bearer ", Outcome{Reason: ReasonEmptyToken}},
		{"bearer with blank token", "Bearer    ", Outcome{Reason: ReasonInvalidToken}},
		{"wrong token", "Bearer nope", Outcome{Reason: ReasonInvalidToken}},
		{"token prefix only", "Bearer s3cret", Outcome{Reason: ReasonInvalidToken}},
		{"valid token", "Bearer " + testSecret, Outcome{Authorized: true}},
		{"lowercase scheme", "bearer " + testSecret, Outcome{Reason: ReasonInvalidFormat}},
		{"uppercase scheme", "BEARER " + testSecret, Outcome{Reason: ReasonInvalidFormat}},
		{"extra separator", "Bearer  " + testSecret, Outcome{Reason: ReasonInvalidToken}},
		{"trailing whitespace", "Bearer " + testSecret + " ", Outcome{Reason: ReasonInvalidToken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(headers(tt.header), testSecret))
		})
	}
}

func TestValidate_DisabledAuthorizesEverything(t *testing.T) {
	for _, h := range []string{"", "Basic abc", "Bearer", "Bearer anything"} {
		assert.Equal(t, Outcome{Authorized: true}, Validate(headers(h), ""), "header %q", h)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(Outcome{Authorized: true}))
	for _, reason := range []string{ReasonMissingHeader, ReasonInvalidFormat, ReasonEmptyToken, ReasonInvalidToken} {
		assert.Equal(t, http.StatusUnauthorized, StatusFor(Outcome{Reason: reason}))
	}
	assert.Equal(t, http.StatusForbidden, StatusFor(Outcome{Reason: "tool not permitted"}))
}

type failureCounter struct {
	mu      sync.Mutex
	reasons []string
}

func (f *failureCounter) ObserveAuthFailure(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func TestGuard_RejectsWithoutCallingNext(t *testing.T) {
	counter := &failureCounter{}
	gate := NewGate(testSecret, slog.Default(), WithFailureObserver(counter))

	called := false
	handler := gate.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Bearer realm="wolfram-gateway"`, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "Unauthorized", "message": ReasonMissingHeader}, body)
	assert.Equal(t, []string{ReasonMissingHeader}, counter.reasons)
}

func TestGuard_AdmitsValidToken(t *testing.T) {
	gate := NewGate(testSecret, slog.Default())

	var got *AuthContext
	handler := gate.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, ModeBearer, got.Mode)
	assert.True(t, gate.Enabled())
}

func TestGate_DisabledWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	gate := NewGate("", logger)
	assert.False(t, gate.Enabled())

	var got *AuthContext
	handler := gate.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	for i := 0; i < 5; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sse", nil))
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "authentication disabled"))
	require.NotNil(t, got)
	assert.Equal(t, ModeDisabled, got.Mode)
}

func TestFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, FromContext(req.Context()))
}

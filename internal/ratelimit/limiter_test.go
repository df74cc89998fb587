// ABOUTME: Tests for the per-client rate limiter and its HTTP middleware.
// ABOUTME: Validates buckets, eviction, idle cleanup, client keys, and 429 responses.

package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowsBurstThenRejects(t *testing.T) {
	l := New(60, 3, nil)
	defer l.Close()

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok, "request %d within burst", i)
	}

	ok, retry := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Second)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l := New(60, 1, nil)
	defer l.Close()

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)

	ok, _ = l.Allow("b")
	assert.True(t, ok)
}

func TestLimiter_RejectedRequestsDoNotConsume(t *testing.T) {
	// 600/min refills one token every 100ms
	l := New(600, 1, nil)
	defer l.Close()

	ok, _ := l.Allow("a")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow("a")
		assert.False(t, ok)
	}

	time.Sleep(120 * time.Millisecond)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestLimiter_DefaultBurst(t *testing.T) {
	l := New(5, 0, nil)
	defer l.Close()

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("a")
		assert.True(t, ok)
	}
	ok, _ := l.Allow("a")
	assert.False(t, ok)
}

func TestLimiter_EvictsOldestAtCapacity(t *testing.T) {
	l := New(60, 1, nil)
	defer l.Close()
	l.maxClients = 2

	l.Allow("a")
	l.Allow("b")
	l.Allow("c")

	assert.Equal(t, 2, l.Len())
	l.mu.Lock()
	_, hasA := l.clients["a"]
	l.mu.Unlock()
	assert.False(t, hasA)

	// a starts over with a full bucket
	ok, _ := l.Allow("a")
	assert.True(t, ok)
}

func TestLimiter_CleanupDropsIdleClients(t *testing.T) {
	l := New(60, 1, nil)
	defer l.Close()
	l.ttl = 10 * time.Millisecond

	l.Allow("idle")
	time.Sleep(20 * time.Millisecond)
	l.Allow("fresh")

	l.runCleanup()
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_CloseIsIdempotent(t *testing.T) {
	l := New(60, 1, nil)
	assert.NotPanics(t, func() {
		l.Close()
		l.Close()
	})
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(60, 20, nil)
	defer l.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientKey(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientKey(req))
}

func TestMiddleware(t *testing.T) {
	l := New(60, 1, nil)
	defer l.Close()

	calls := 0
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)

	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RateLimitExceeded", body["error"])
	assert.Equal(t, 1, calls)
}

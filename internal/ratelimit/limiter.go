// ABOUTME: Per-client token bucket rate limiter with idle eviction.
// ABOUTME: Buckets live in a size-limited TTL table cleaned by a background goroutine.

package ratelimit

import (
	"container/list"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for the client table.
const (
	DefaultIdleTTL    = 10 * time.Minute
	DefaultMaxClients = 10000
)

// clientEntry stores a client's bucket and its position in the eviction list.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	element  *list.Element
}

// Limiter tracks one token bucket per client key. Buckets idle for longer
// than the TTL are dropped; when the table is full the least recently seen
// client is evicted.
type Limiter struct {
	mu         sync.Mutex
	clients    map[string]*clientEntry
	order      *list.List // keys, least recently seen at front
	limit      rate.Limit
	burst      int
	ttl        time.Duration
	maxClients int
	logger     *slog.Logger
	done       chan struct{}
	closed     bool
}

// New creates a Limiter allowing requestsPerMinute per client with the given
// burst. A burst <= 0 defaults to requestsPerMinute.
// A background goroutine periodically removes idle clients.
func New(requestsPerMinute, burst int, logger *slog.Logger) *Limiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Limiter{
		clients:    make(map[string]*clientEntry),
		order:      list.New(),
		limit:      rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:      burst,
		ttl:        DefaultIdleTTL,
		maxClients: DefaultMaxClients,
		logger:     logger,
		done:       make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow consumes one token for key. When the bucket is empty it returns false
// and how long until a token is available.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	lim := l.touchLocked(key, now)
	l.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// touchLocked returns key's bucket, creating it if needed. Must be called with mu held.
func (l *Limiter) touchLocked(key string, now time.Time) *rate.Limiter {
	if entry, exists := l.clients[key]; exists {
		entry.lastSeen = now
		l.order.MoveToBack(entry.element)
		return entry.limiter
	}

	if len(l.clients) >= l.maxClients {
		l.evictOldest()
	}

	entry := &clientEntry{
		limiter:  rate.NewLimiter(l.limit, l.burst),
		lastSeen: now,
		element:  l.order.PushBack(key),
	}
	l.clients[key] = entry
	return entry.limiter
}

// evictOldest removes the least recently seen client.
// Must be called with mu held. O(1) operation using linked list.
func (l *Limiter) evictOldest() {
	front := l.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	l.order.Remove(front)
	delete(l.clients, key)
}

// cleanup runs in a background goroutine, periodically removing idle clients.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.runCleanup()
		case <-l.done:
			return
		}
	}
}

// runCleanup removes every client idle for longer than the TTL.
func (l *Limiter) runCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for e := l.order.Front(); e != nil; {
		key, _ := e.Value.(string)
		entry := l.clients[key]
		if entry == nil || now.Sub(entry.lastSeen) <= l.ttl {
			// list is ordered by lastSeen, the rest are fresher
			break
		}
		next := e.Next()
		l.order.Remove(e)
		delete(l.clients, key)
		e = next
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		close(l.done)
		l.closed = true
	}
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Every request counts, whatever the downstream handler does with it.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)
		ok, retryAfter := l.Allow(key)
		if !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			l.logger.Warn("rate limit exceeded", "client", key, "path", r.URL.Path, "retry_after_s", seconds)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "RateLimitExceeded",
				"message": "Too many requests. Retry after " + strconv.Itoa(seconds) + " seconds.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

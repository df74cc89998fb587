// ABOUTME: HTTP routing for health, the MCP transports, metrics and unknown paths
// ABOUTME: Applies CORS, rate limiting and the auth guard in that order

package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/2389/wolfram-gateway/internal/mcp"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
	Tools     []string          `json:"tools"`
	Auth      string            `json:"auth"`
}

func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(g.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: g.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Mcp-Protocol-Version", "Last-Event-ID"},
		ExposedHeaders: []string{"Content-Type", "Retry-After"},
		MaxAge:         300,
	}))

	// Health - no auth, no rate limit
	r.Get("/health", g.handleHealth)

	if g.config.Metrics.Enabled {
		r.Handle(g.config.Metrics.Path, g.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if g.limiter != nil {
			r.Use(g.limiter.Middleware)
		}
		r.Use(g.gate.Guard)

		r.Handle("/mcp", g.mcpServer)
		r.Handle(mcp.SSEPath, g.stream)
		r.Handle(mcp.MessagePath, g.stream)
	})

	r.NotFound(handleNotFound)

	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	authMode := "disabled"
	if g.gate.Enabled() {
		authMode = "required"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: ServiceName,
		Version: g.version,
		Endpoints: map[string]string{
			"health": "/health",
			"mcp":    "/mcp",
			"sse":    mcp.SSEPath,
		},
		Tools: g.registry.Names(),
		Auth:  authMode,
	})
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

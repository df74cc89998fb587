// ABOUTME: Gateway orchestrator that wires backends, tools, transports and the HTTP server
// ABOUTME: Manages listener setup, serving, and graceful shutdown lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/wolfram-gateway/internal/auth"
	"github.com/2389/wolfram-gateway/internal/builtins"
	"github.com/2389/wolfram-gateway/internal/config"
	"github.com/2389/wolfram-gateway/internal/mcp"
	"github.com/2389/wolfram-gateway/internal/metrics"
	"github.com/2389/wolfram-gateway/internal/ratelimit"
	"github.com/2389/wolfram-gateway/internal/tools"
)

// ServiceName identifies the gateway in health responses and serverInfo.
const ServiceName = "wolfram-gateway"

// shutdownTimeout bounds graceful shutdown after the run context ends.
const shutdownTimeout = 5 * time.Second

// Gateway owns every server component: the backend state, the tool registry,
// both MCP transports and the HTTP server that fronts them.
type Gateway struct {
	config  *config.Config
	logger  *slog.Logger
	version string

	state    *builtins.State
	registry *tools.Registry
	metrics  *metrics.Metrics
	gate     *auth.Gate
	limiter  *ratelimit.Limiter // nil when rate limiting is disabled

	mcpServer *mcp.Server
	stream    *mcp.Stream

	handler    http.Handler
	httpServer *http.Server
	httpClient *http.Client
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithVersion sets the version reported by /health, serverInfo and the
// outbound User-Agent.
func WithVersion(version string) Option {
	return func(g *Gateway) {
		g.version = version
	}
}

// WithHTTPClient sets the client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// New builds a Gateway from a validated config. Nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	gw := &Gateway{
		config:  cfg,
		logger:  logger.With("component", "gateway"),
		version: "dev",
	}
	for _, opt := range opts {
		opt(gw)
	}

	gw.metrics = metrics.New()

	state, err := builtins.Initialize(cfg, builtins.Options{
		Version:    gw.version,
		HTTPClient: gw.httpClient,
		Observer:   gw.metrics,
		Logger:     logger.With("component", "backends"),
	})
	if err != nil {
		return nil, err
	}
	gw.state = state

	gw.registry = tools.NewRegistry(logger.With("component", "tool-registry"), tools.WithObserver(gw.metrics))
	if err := builtins.RegisterAll(gw.registry, state); err != nil {
		return nil, err
	}

	gw.gate = auth.NewGate(cfg.Auth.Token, logger.With("component", "auth"), auth.WithFailureObserver(gw.metrics))

	if cfg.RateLimit.RequestsPerMinute > 0 {
		gw.limiter = ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, logger.With("component", "ratelimit"))
	}

	gw.mcpServer, err = mcp.NewServer(mcp.Config{
		Registry: gw.registry,
		Logger:   logger.With("component", "mcp"),
		Name:     ServiceName,
		Version:  gw.version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	gw.stream, err = mcp.NewStream(mcp.StreamConfig{
		Registry: gw.registry,
		Logger:   logger.With("component", "mcp-stream"),
		Name:     ServiceName,
		Version:  gw.version,
		BaseURL:  cfg.Server.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP stream: %w", err)
	}

	gw.handler = gw.routes()
	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler returns the fully wired HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	g.logger.Info("starting gateway",
		"http_addr", ln.Addr().String(),
		"auth", g.gate.Enabled(),
		"tools", len(g.registry.Names()),
	)

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// startServer starts the HTTP server in a goroutine, returning error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown closes open streams, drains the HTTP server and stops background work.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "stream shutdown", g.stream.Shutdown(ctx))
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	if g.limiter != nil {
		g.limiter.Close()
	}

	return errors.Join(errs...)
}

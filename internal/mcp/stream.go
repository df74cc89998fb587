// ABOUTME: Push-stream MCP transport built on mcp-go's SSE server.
// ABOUTME: Bridges every registry tool into an MCPServer and logs stream sessions.

package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/2389/wolfram-gateway/internal/tools"
)

// DefaultServerName is reported to clients in serverInfo.
const DefaultServerName = "wolfram-gateway"

// Stream endpoint paths.
const (
	SSEPath     = "/sse"
	MessagePath = "/sse/message"
)

// StreamConfig holds configuration for the stream transport.
type StreamConfig struct {
	Registry *tools.Registry
	Logger   *slog.Logger
	Name     string
	Version  string
	// BaseURL prefixes the message endpoint announced to clients. Empty
	// announces a relative path.
	BaseURL string
}

// Stream serves GET /sse (event stream) and POST /sse/message (client messages).
type Stream struct {
	mcp    *server.MCPServer
	sse    *server.SSEServer
	logger *slog.Logger

	// closing is cancelled by Shutdown and ends every open stream
	closing context.Context
	close   context.CancelFunc
}

// NewStream registers every tool currently in the registry with a fresh
// MCPServer and wraps it in an SSE transport. Tools registered afterwards are
// not visible on the stream.
func NewStream(cfg StreamConfig) (*Stream, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = DefaultServerName
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(func(_ context.Context, session server.ClientSession) {
		logger.Info("MCP stream session opened", "session_id", session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		logger.Info("MCP stream session closed", "session_id", session.SessionID())
	})

	mcpServer := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
	)

	for _, info := range cfg.Registry.List() {
		tool := mcpgo.NewToolWithRawSchema(info.Name, info.Description, info.InputSchema)
		mcpServer.AddTool(tool, callHandler(cfg.Registry, info.Name, logger))
	}

	opts := []server.SSEOption{
		server.WithSSEEndpoint(SSEPath),
		server.WithMessageEndpoint(MessagePath),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, server.WithBaseURL(cfg.BaseURL))
	}

	closing, closeFn := context.WithCancel(context.Background())
	return &Stream{
		mcp:     mcpServer,
		sse:     server.NewSSEServer(mcpServer, opts...),
		logger:  logger,
		closing: closing,
		close:   closeFn,
	}, nil
}

// ServeHTTP routes SSEPath and MessagePath to the SSE transport. Requests
// end early once Shutdown is called.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.closing, cancel)
	defer stop()

	s.sse.ServeHTTP(w, r.WithContext(ctx))
}

// Shutdown ends every open stream. An http.Server cannot drain event streams
// on its own, so call this before shutting it down.
func (s *Stream) Shutdown(ctx context.Context) error {
	s.close()
	return s.sse.Shutdown(ctx)
}

// callHandler dispatches a stream tools/call through the registry so both
// transports share validation and the error boundary.
func callHandler(registry *tools.Registry, name string, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		requestID := uuid.New().String()
		ctx = tools.WithRequestID(ctx, requestID)

		result, err := registry.Dispatch(ctx, name, args)
		if err != nil {
			logger.Warn("stream tool dispatch failed", "tool_name", name, "request_id", requestID, "error", err)
			return nil, err
		}
		return toCallToolResult(result), nil
	}
}

func toCallToolResult(result tools.Result) *mcpgo.CallToolResult {
	content := make([]mcpgo.Content, 0, len(result.Content))
	for _, c := range result.Content {
		content = append(content, mcpgo.NewTextContent(c.Text))
	}
	return &mcpgo.CallToolResult{Content: content}
}

// ABOUTME: Tests for the SSE stream transport bridge.
// ABOUTME: Drives the mcp-go server directly and checks tools route through the registry.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wolfram-gateway/internal/tools"
)

func newTestStream(t *testing.T) (*Stream, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	stream, err := NewStream(StreamConfig{Registry: setupTestRegistry(t, calls), Version: "1.2.3"})
	require.NoError(t, err)
	return stream, calls
}

// handle sends one raw JSON-RPC message to the MCP server and returns the
// response re-encoded as a generic map.
func handle(t *testing.T, s *Stream, msg string) map[string]any {
	t.Helper()
	out := s.mcp.HandleMessage(context.Background(), json.RawMessage(msg))
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func TestNewStream_RequiresRegistry(t *testing.T) {
	_, err := NewStream(StreamConfig{})
	assert.Error(t, err)
}

func TestStream_ListsRegistryTools(t *testing.T) {
	stream, _ := newTestStream(t)

	resp := handle(t, stream, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response: %v", resp)

	list, ok := result["tools"].([]any)
	require.True(t, ok)
	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, item.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"add", "broken"}, names)
}

func TestStream_CallDispatchesThroughRegistry(t *testing.T) {
	stream, calls := newTestStream(t)

	resp := handle(t, stream, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add","arguments":{"a":1.5,"b":2}}}`)
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response: %v", resp)

	content := result["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "3.5", content[0].(map[string]any)["text"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallHandler(t *testing.T) {
	calls := &atomic.Int32{}
	registry := setupTestRegistry(t, calls)

	t.Run("validation failure is text", func(t *testing.T) {
		h := callHandler(registry, "add", testLogger())
		res, err := h(context.Background(), mcpgo.CallToolRequest{
			Params: mcpgo.CallToolParams{Name: "add", Arguments: map[string]any{"a": "two", "b": 1}},
		})
		require.NoError(t, err)
		require.Len(t, res.Content, 1)
		text, ok := res.Content[0].(mcpgo.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "Invalid arguments for add")
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("nil arguments", func(t *testing.T) {
		h := callHandler(registry, "broken", testLogger())
		res, err := h(context.Background(), mcpgo.CallToolRequest{Params: mcpgo.CallToolParams{Name: "broken"}})
		require.NoError(t, err)
		text := res.Content[0].(mcpgo.TextContent)
		assert.Equal(t, "Error running broken: backend exploded", text.Text)
	})

	t.Run("unknown tool is an error", func(t *testing.T) {
		h := callHandler(registry, "missing", testLogger())
		_, err := h(context.Background(), mcpgo.CallToolRequest{})
		assert.ErrorIs(t, err, tools.ErrToolNotFound)
	})
}

func TestStream_UnknownPath(t *testing.T) {
	stream, _ := newTestStream(t)
	rr := httptest.NewRecorder()
	stream.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStream_ShutdownEndsOpenStreams(t *testing.T) {
	stream, _ := newTestStream(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, SSEPath, nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		stream.ServeHTTP(rr, req)
		close(done)
	}()

	require.NoError(t, stream.Shutdown(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after Shutdown")
	}
}

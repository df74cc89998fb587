// Package mcp exposes the tool registry over the Model Context Protocol.
//
// # Transports
//
// Two transports share one registry, so validation, the error boundary and
// the text-only result envelope are identical on both:
//
//   - POST /mcp - single-call mode. One JSON-RPC 2.0 message in, one
//     response out. No session is created.
//   - GET /sse, POST /sse/message - stream mode, served by mcp-go's SSE
//     server. Responses to messages arrive on the event stream.
//
// Neither transport authenticates; the gateway wraps both in the auth guard.
//
// # Methods
//
// The single-call endpoint answers initialize, ping, tools/list and
// tools/call. Notifications are accepted with 202 and no body. Any other
// method is -32601; an unknown tool name is -32602.
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "wolfram_alpha",
//	    "arguments": {"query": "population of France"}
//	  },
//	  "id": 2
//	}
//
// A tool that fails still produces a normal result whose text explains the
// failure; JSON-RPC errors are reserved for malformed requests.
package mcp

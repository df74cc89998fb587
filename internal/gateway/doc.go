// Package gateway orchestrates the wolfram-gateway server components.
//
// # Overview
//
// The Gateway owns the backend clients, the tool registry, both MCP
// transports and the HTTP server. New wires everything from a Config; Run
// listens and blocks until its context is canceled, then shuts down
// gracefully.
//
// # Routes
//
//   - GET /health - Liveness and tool listing, never authenticated
//   - POST /mcp - Single-call JSON-RPC
//   - GET /sse, POST /sse/message - Stream transport
//   - GET /metrics - Prometheus metrics, when enabled
//
// Anything else is 404 with a JSON body.
//
// # Middleware
//
// Every request passes CORS handling first. The MCP routes are then rate
// limited per client and finally checked by the auth guard, so a rejected
// request never reaches the tool registry.
//
// # Usage
//
//	gw, err := gateway.New(cfg, logger, gateway.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	return gw.Run(ctx)
package gateway

// Package auth provides the bearer-token gate for wolfram-gateway.
//
// # Credential
//
// The gateway is configured with one opaque secret (auth.token or AUTH_TOKEN).
// Clients present it as
//
//	Authorization: Bearer <secret>
//
// Tokens are compared in constant time. When no secret is configured every
// request is accepted and a single warning is logged when the Gate is created.
//
// # Outcomes
//
// Validate returns an Outcome with one of these reasons on failure:
//
//   - "Missing Authorization header"
//   - "Invalid Authorization header format. Expected: Bearer <token>"
//   - "Empty bearer token"
//   - "Invalid token"
//
// All four map to 401 with a WWW-Authenticate challenge. StatusFor reserves
// 403 for any other (authorization) reason.
//
// # Middleware
//
// Guard wraps an http.Handler:
//
//	gate := auth.NewGate(cfg.Auth.Token, logger)
//	mux.Handle("/mcp", gate.Guard(mcpHandler))
//
// Admitted requests carry an AuthContext retrievable with FromContext.
package auth

// ABOUTME: Authentication context for tracking how a request was admitted
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// Mode describes how a request passed the gate.
type Mode string

const (
	ModeBearer   Mode = "bearer"   // a valid bearer token was presented
	ModeDisabled Mode = "disabled" // no secret configured
)

// AuthContext is attached to every request that passed Guard.
type AuthContext struct {
	Mode Mode
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}

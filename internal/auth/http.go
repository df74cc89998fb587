// ABOUTME: Bearer-token gate for inbound HTTP requests
// ABOUTME: Validate is a pure check; Guard wraps a handler and answers 401 on failure

package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Failure reasons reported in Outcome.Reason and in 401 bodies.
const (
	ReasonMissingHeader = "Missing Authorization header"
	ReasonInvalidFormat = "Invalid Authorization header format. Expected: Bearer <token>"
	ReasonEmptyToken    = "Empty bearer token"
	ReasonInvalidToken  = "Invalid token"
)

// Realm is advertised in the WWW-Authenticate challenge.
const Realm = "wolfram-gateway"

// Outcome is the result of validating one request. It is never cached.
type Outcome struct {
	Authorized bool
	Reason     string
}

// FailureObserver counts rejected requests by reason.
type FailureObserver interface {
	ObserveAuthFailure(reason string)
}

// Validate checks headers against secret. An empty secret authorizes every
// request.
func Validate(headers http.Header, secret string) Outcome {
	if secret == "" {
		return Outcome{Authorized: true}
	}

	token, reason := extractBearerToken(headers.Get("Authorization"))
	if reason != "" {
		return Outcome{Reason: reason}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return Outcome{Reason: ReasonInvalidToken}
	}
	return Outcome{Authorized: true}
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and a failure reason (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", ReasonMissingHeader
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ReasonInvalidFormat
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", ReasonEmptyToken
	}
	return token, ""
}

// StatusFor maps a failed Outcome to an HTTP status: 401 for missing or
// invalid credentials, 403 for anything else.
func StatusFor(o Outcome) int {
	if o.Authorized {
		return http.StatusOK
	}
	switch o.Reason {
	case ReasonMissingHeader, ReasonInvalidFormat, ReasonEmptyToken, ReasonInvalidToken:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// Gate holds the configured secret for the life of the process.
type Gate struct {
	secret   string
	logger   *slog.Logger
	observer FailureObserver
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithFailureObserver reports rejected requests to o.
func WithFailureObserver(o FailureObserver) GateOption {
	return func(g *Gate) {
		g.observer = o
	}
}

// NewGate creates a Gate. An empty secret disables authentication, which is
// logged once here rather than per request.
func NewGate(secret string, logger *slog.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{secret: secret, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	if secret == "" {
		logger.Warn("authentication disabled: no auth token configured, every request is accepted")
	}
	return g
}

// Enabled reports whether a secret is configured.
func (g *Gate) Enabled() bool {
	return g.secret != ""
}

// Validate checks one request's headers.
func (g *Gate) Validate(headers http.Header) Outcome {
	return Validate(headers, g.secret)
}

// Guard only calls next for authorized requests. Rejected requests get a JSON
// error body and a Bearer challenge.
func (g *Gate) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := g.Validate(r.Header)
		if !outcome.Authorized {
			g.logger.Warn("authentication failed",
				"reason", outcome.Reason,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			if g.observer != nil {
				g.observer.ObserveAuthFailure(outcome.Reason)
			}
			writeFailure(w, outcome)
			return
		}

		mode := ModeBearer
		if !g.Enabled() {
			mode = ModeDisabled
		}
		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), &AuthContext{Mode: mode})))
	})
}

func writeFailure(w http.ResponseWriter, o Outcome) {
	status := StatusFor(o)
	title := "Unauthorized"
	if status == http.StatusForbidden {
		title = "Forbidden"
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="`+Realm+`"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   title,
		"message": o.Reason,
	})
}

// ABOUTME: HTTP client for the Wolfram Language execution server
// ABOUTME: Health, execute, and evaluate calls with per-call timeouts and JSON decoding

package wolfram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389/wolfram-gateway/internal/upstream"
)

const (
	// DefaultTimeout bounds each outbound call.
	DefaultTimeout = 30 * time.Second

	// DefaultExecuteTimeout and DefaultEvaluateTimeout are the server-side
	// limits sent when a request leaves Timeout at zero.
	DefaultExecuteTimeout  = 30
	DefaultEvaluateTimeout = 10

	MaxExecuteTimeout  = 300
	MaxEvaluateTimeout = 60

	// deadlineGrace is added on top of a server-side timeout so the server
	// reports its own timeout before the client gives up, when the client
	// timeout leaves room for it.
	deadlineGrace = 5 * time.Second

	clientName  = "wolfram-gateway"
	backendName = "execution"
)

// ErrNoBaseURL is returned by New when no server URL is configured.
var ErrNoBaseURL = errors.New("wolfram execution server url not configured")

// Format selects how the server renders an execution result.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatImage Format = "image"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatJSON, FormatImage:
		return true
	}
	return false
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Observer   upstream.Observer
}

// ExecuteRequest runs a block of Wolfram Language code.
type ExecuteRequest struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout"`
	Format  Format `json:"format"`
}

// EvaluateRequest evaluates a single expression.
type EvaluateRequest struct {
	Expression string `json:"expression"`
	Timeout    int    `json:"timeout"`
}

// Response is the body of both execute and evaluate.
type Response struct {
	Success       bool     `json:"success"`
	Result        Result   `json:"result"`
	Output        string   `json:"output,omitempty"`
	Error         string   `json:"error,omitempty"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// HealthStatus is the body of the server's health probe.
type HealthStatus struct {
	Status           string         `json:"status"`
	Version          string         `json:"version"`
	WolframAvailable bool           `json:"wolfram_available"`
	KernelInfo       map[string]any `json:"kernel_info,omitempty"`
}

// Connection is the never-failing summary of a health probe.
type Connection struct {
	Available       bool   `json:"available"`
	Version         string `json:"version,omitempty"`
	KernelAvailable bool   `json:"kernel_available"`
	Error           string `json:"error,omitempty"`
}

// Client talks to one execution server. It holds no per-call state and is safe
// for concurrent use.
type Client struct {
	baseURL   string
	timeout   time.Duration
	grace     time.Duration
	userAgent string
	caller    *upstream.Caller
}

// New creates a Client. An empty BaseURL is an error: callers treat it as the
// execution tool family being unconfigured.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = clientName
	}

	return &Client{
		baseURL:   baseURL,
		timeout:   timeout,
		grace:     deadlineGrace,
		userAgent: userAgent,
		caller: &upstream.Caller{
			Backend:    backendName,
			HTTPClient: cfg.HTTPClient,
			Observer:   cfg.Observer,
		},
	}, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, c.timeout, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Execute runs code via POST /execute.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*Response, error) {
	if req.Timeout <= 0 {
		req.Timeout = DefaultExecuteTimeout
	}
	if req.Format == "" {
		req.Format = FormatText
	}
	if !req.Format.Valid() {
		return nil, fmt.Errorf("unsupported output format %q", req.Format)
	}

	var resp Response
	if err := c.do(ctx, "execute", http.MethodPost, "/execute", req, c.deadline(req.Timeout), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Evaluate evaluates an expression via POST /evaluate.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (*Response, error) {
	if req.Timeout <= 0 {
		req.Timeout = DefaultEvaluateTimeout
	}

	var resp Response
	if err := c.do(ctx, "evaluate", http.MethodPost, "/evaluate", req, c.deadline(req.Timeout), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestConnection reduces Health to a Connection and never fails.
func (c *Client) TestConnection(ctx context.Context) Connection {
	status, err := c.Health(ctx)
	if err != nil {
		return Connection{Available: false, Error: err.Error()}
	}
	return Connection{
		Available:       true,
		Version:         status.Version,
		KernelAvailable: status.WolframAvailable,
	}
}

// deadline is the server-side timeout plus grace, never longer than the
// client timeout.
func (c *Client) deadline(serverSeconds int) time.Duration {
	requested := time.Duration(serverSeconds)*time.Second + c.grace
	if requested < c.timeout {
		return requested
	}
	return c.timeout
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, timeout time.Duration, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Client-Name", clientName)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.caller.Do(ctx, op, req, timeout)
	if err != nil {
		return err
	}
	return upstream.DecodeJSON(op, resp.Body, out)
}

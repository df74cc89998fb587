// ABOUTME: Shared outbound HTTP call for backend clients with per-call timeouts.
// ABOUTME: Classifies failures into network, timeout, parse, and upstream error kinds.

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxResponseBodySize caps how much of a backend response is read (8MB).
const MaxResponseBodySize = 8 << 20

// Kind classifies a backend failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindParse
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is returned by every backend call that fails.
type Error struct {
	Kind    Kind
	Op      string
	Status  int // HTTP status when the backend answered, 0 otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return 0
}

// IsTimeout reports whether err is a backend timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// Observer receives one observation per outbound call.
type Observer interface {
	ObserveBackend(backend, op, outcome string, dur time.Duration)
}

// Caller performs outbound requests for one backend.
type Caller struct {
	Backend    string
	HTTPClient *http.Client
	Observer   Observer
}

// Response is a fully read 2xx backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends req bounded by timeout and reads the whole body.
// Non-2xx responses become KindUpstream errors carrying the most specific
// message the body offers.
func (c *Caller) Do(ctx context.Context, op string, req *http.Request, timeout time.Duration) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		if c.Observer == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		c.Observer.ObserveBackend(c.Backend, op, outcome, time.Since(start))
	}()

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	httpResp, err := client.Do(req.WithContext(callCtx))
	if err != nil {
		return nil, c.transportError(ctx, callCtx, op, timeout, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, c.transportError(ctx, callCtx, op, timeout, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindUpstream,
			Op:      op,
			Status:  httpResp.StatusCode,
			Message: ErrorMessage(body, httpResp),
		}
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   body,
	}, nil
}

// transportError distinguishes our own deadline from caller cancellation and
// plain network failures.
func (c *Caller) transportError(parent, callCtx context.Context, op string, timeout time.Duration, err error) *Error {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return timeoutError(op, timeout, err)
	}
	if errors.Is(parent.Err(), context.Canceled) {
		return &Error{Kind: KindNetwork, Op: op, Message: "request cancelled", Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return timeoutError(op, timeout, err)
	}

	return &Error{
		Kind:    KindNetwork,
		Op:      op,
		Message: fmt.Sprintf("network error contacting %s: %v", c.Backend, unwrapURLError(err)),
		Err:     err,
	}
}

func timeoutError(op string, timeout time.Duration, err error) *Error {
	msg := "request timed out"
	if timeout > 0 {
		msg = fmt.Sprintf("request timed out after %s", timeout)
	}
	return &Error{Kind: KindTimeout, Op: op, Message: msg, Err: err}
}

// unwrapURLError drops the "Get \"http://...\":" prefix net/http adds.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

// DecodeJSON parses a backend body into v. Empty and malformed bodies are
// KindParse errors, never silent successes.
func DecodeJSON(op string, body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return &Error{Kind: KindParse, Op: op, Message: "invalid response from backend: empty body"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{
			Kind:    KindParse,
			Op:      op,
			Message: fmt.Sprintf("invalid response from backend: %v", err),
			Err:     err,
		}
	}
	return nil
}

// ErrorMessage extracts a human-readable message from an error body.
// Checks detail, message, then error fields; falls back to the status line.
func ErrorMessage(body []byte, resp *http.Response) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if msg := messageFrom(fields[key]); msg != "" {
				return msg
			}
		}
	}
	return StatusLine(resp)
}

// messageFrom accepts a string, an object with msg/message, or a list of such
// objects (FastAPI validation errors).
func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Msg
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, item := range list {
			if msg := messageFrom(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return ""
}

// StatusLine renders "HTTP 503 Service Unavailable".
func StatusLine(resp *http.Response) string {
	if resp == nil {
		return "HTTP error"
	}
	if resp.Status != "" {
		return "HTTP " + resp.Status
	}
	return fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// ABOUTME: HTTP client for the Wolfram|Alpha natural-language query API
// ABOUTME: Reduces pod/subpod results to flat text or a structured summary

package wolframalpha

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2389/wolfram-gateway/internal/upstream"
)

const (
	// DefaultBaseURL is the full-results API endpoint.
	DefaultBaseURL = "https://api.wolframalpha.com/v2/query"

	// DefaultTimeout bounds each outbound query.
	DefaultTimeout = 30 * time.Second

	// DefaultFormat requests plain text and images for every subpod.
	DefaultFormat = "plaintext,image"

	// NoResults is returned by SimpleQuery when no pod carries text.
	NoResults = "No results found for this query."

	backendName = "wolfram_alpha"
)

// ErrNoAppID is returned by New when no application id is configured.
var ErrNoAppID = errors.New("wolfram alpha app id not configured")

// QueryError is the failure type of every query operation.
type QueryError struct {
	Message string
	Cause   error
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Config configures a Client.
type Config struct {
	AppID      string
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Observer   upstream.Observer
}

// Options are the optional rendering and locale hints of a query.
type Options struct {
	Format      string // comma separated; defaults to DefaultFormat
	Units       string // "metric" or "nonmetric"
	Location    string
	Width       int
	MaxWidth    int
	Mag         float64
	ScanTimeout time.Duration
	PodTimeout  time.Duration
}

// Client queries Wolfram|Alpha. It holds no per-query state and is safe for
// concurrent use.
type Client struct {
	appID     string
	baseURL   string
	timeout   time.Duration
	userAgent string
	caller    *upstream.Caller
}

// New creates a Client. An empty AppID is an error: callers treat it as the
// query tool family being unconfigured.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, ErrNoAppID
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		appID:     cfg.AppID,
		baseURL:   baseURL,
		timeout:   timeout,
		userAgent: cfg.UserAgent,
		caller: &upstream.Caller{
			Backend:    backendName,
			HTTPClient: cfg.HTTPClient,
			Observer:   cfg.Observer,
		},
	}, nil
}

// Query sends one request and decodes the queryresult. A false success flag is
// reported as a QueryError.
func (c *Client) Query(ctx context.Context, input string, opts Options) (*Response, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &QueryError{Message: "query input must not be empty"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+c.params(input, opts).Encode(), nil)
	if err != nil {
		return nil, &QueryError{Message: fmt.Sprintf("building request: %v", err), Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.caller.Do(ctx, "query", req, c.timeout)
	if err != nil {
		return nil, &QueryError{Message: err.Error(), Cause: err}
	}

	var env envelope
	if err := upstream.DecodeJSON("query", resp.Body, &env); err != nil {
		return nil, &QueryError{Message: err.Error(), Cause: err}
	}

	result := env.QueryResult.toResponse()
	if !result.Success {
		return nil, &QueryError{Message: failureMessage(result)}
	}
	return result, nil
}

// SimpleQuery flattens every non-empty subpod text, prefixed with its pod
// title, into blank-line separated paragraphs. Returns NoResults when no pod
// carries text.
func (c *Client) SimpleQuery(ctx context.Context, input string, opts Options) (string, error) {
	resp, err := c.Query(ctx, input, opts)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, pod := range resp.Pods {
		for _, sub := range pod.Subpods {
			text := strings.TrimSpace(sub.Plaintext)
			if text == "" {
				continue
			}
			if pod.Title != "" {
				text = pod.Title + ": " + text
			}
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return NoResults, nil
	}
	return strings.Join(parts, "\n\n"), nil
}

// FullQuery returns one summary entry per pod that has text or images.
func (c *Client) FullQuery(ctx context.Context, input string, opts Options) (*Summary, error) {
	resp, err := c.Query(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	return summarize(strings.TrimSpace(input), resp), nil
}

func (c *Client) params(input string, opts Options) url.Values {
	v := url.Values{}
	v.Set("appid", c.appID)
	v.Set("input", input)
	v.Set("output", "json")

	format := opts.Format
	if format == "" {
		format = DefaultFormat
	}
	v.Set("format", format)

	if opts.Units != "" {
		v.Set("units", opts.Units)
	}
	if opts.Location != "" {
		v.Set("location", opts.Location)
	}
	if opts.Width > 0 {
		v.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.MaxWidth > 0 {
		v.Set("maxwidth", strconv.Itoa(opts.MaxWidth))
	}
	if opts.Mag > 0 {
		v.Set("mag", strconv.FormatFloat(opts.Mag, 'f', -1, 64))
	}
	if opts.ScanTimeout > 0 {
		v.Set("scantimeout", strconv.FormatFloat(opts.ScanTimeout.Seconds(), 'f', -1, 64))
	}
	if opts.PodTimeout > 0 {
		v.Set("podtimeout", strconv.FormatFloat(opts.PodTimeout.Seconds(), 'f', -1, 64))
	}
	return v
}

func failureMessage(resp *Response) string {
	if resp.Error != nil && resp.Error.Msg != "" {
		if resp.Error.Code != "" {
			return fmt.Sprintf("Wolfram|Alpha error %s: %s", resp.Error.Code, resp.Error.Msg)
		}
		return "Wolfram|Alpha error: " + resp.Error.Msg
	}
	return "Wolfram|Alpha could not interpret the query"
}

// ABOUTME: Tool result envelope, handler signature, and the error boundary
// ABOUTME: Handler errors and panics are converted into text content

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// Content is one item of a tool result. Only "text" is produced.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the uniform envelope returned for every tool call, successful or not.
type Result struct {
	Content []Content `json:"content"`
}

// Text builds a single-item text Result.
func Text(s string) Result {
	return Result{Content: []Content{{Type: "text", Text: s}}}
}

// String joins all text content with newlines.
func (r Result) String() string {
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

// Handler executes a tool with validated arguments.
type Handler func(ctx context.Context, args Args) (Result, error)

type boundHandler func(ctx context.Context, args Args) (Result, string)

// errorBoundary wraps a tool's handler so it never returns an error or
// panics: errors become "<ErrorPrefix>: <message>" and panics become a generic
// internal error. The second return value is the dispatch outcome.
func errorBoundary(spec Spec, logger *slog.Logger) boundHandler {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := spec.ErrorPrefix
	if prefix == "" {
		prefix = "Error executing " + spec.Name
	}

	return func(ctx context.Context, args Args) (result Result, outcome string) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("tool handler panicked",
					"tool_name", spec.Name,
					"request_id", RequestID(ctx),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				result = Text("Internal error in tool " + spec.Name)
				outcome = OutcomePanic
			}
		}()

		res, err := spec.Handler(ctx, args)
		if err != nil {
			return Text(fmt.Sprintf("%s: %s", prefix, err.Error())), OutcomeError
		}
		if len(res.Content) == 0 {
			res = Text("")
		}
		return res, OutcomeOK
	}
}

// Args holds validated arguments: strings, float64 numbers, int64 integers, bools.
type Args map[string]any

// Has reports whether name was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

func (a Args) Int(name string) int {
	n, _ := a[name].(int64)
	return int(n)
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

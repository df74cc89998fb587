// ABOUTME: Language pack runs Wolfram Language code on the execution server.
// ABOUTME: Execute and evaluate probe server health first and stop if it is down.

package builtins

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/2389/wolfram-gateway/internal/tools"
	"github.com/2389/wolfram-gateway/internal/wolfram"
)

// ExecNotConfigured is returned by the language tools when no client exists.
const ExecNotConfigured = "Wolfram execution server not configured. Set execution.base_url or the WOLFRAM_SERVER_URL environment variable to enable this tool."

// LanguagePack creates the Wolfram Language pack.
func LanguagePack(state *State) tools.Pack {
	h := &languageHandlers{client: state.Exec, alphaConfigured: state.Alpha != nil}

	return tools.Pack{
		ID: "builtin:wolfram_language",
		Tools: []tools.Spec{
			{
				Name:        "wolfram_execute",
				Description: "Execute Wolfram Language code on the execution server",
				Fields: []tools.Field{
					{Name: "code", Type: tools.TypeString, Description: "Wolfram Language code to execute", Required: true},
					{
						Name: "timeout", Type: tools.TypeInteger, Description: "Execution timeout in seconds",
						Default: wolfram.DefaultExecuteTimeout, Minimum: tools.Bound(1), Maximum: tools.Bound(wolfram.MaxExecuteTimeout),
					},
					{
						Name: "format", Type: tools.TypeString, Description: "Output format",
						Default: string(wolfram.FormatText), Enum: []string{string(wolfram.FormatText), string(wolfram.FormatJSON), string(wolfram.FormatImage)},
					},
				},
				ErrorPrefix: "Error executing Wolfram code",
				Handler:     h.Execute,
			},
			{
				Name:        "wolfram_evaluate",
				Description: "Evaluate a single Wolfram Language expression",
				Fields: []tools.Field{
					{Name: "expression", Type: tools.TypeString, Description: "Wolfram Language expression, e.g. 'Integrate[x^2, x]'", Required: true},
					{
						Name: "timeout", Type: tools.TypeInteger, Description: "Evaluation timeout in seconds",
						Default: wolfram.DefaultEvaluateTimeout, Minimum: tools.Bound(1), Maximum: tools.Bound(wolfram.MaxEvaluateTimeout),
					},
				},
				ErrorPrefix: "Error evaluating expression",
				Handler:     h.Evaluate,
			},
			{
				Name:        "wolfram_status",
				Description: "Report whether the Wolfram backends are configured and reachable",
				ErrorPrefix: "Error checking Wolfram status",
				Handler:     h.Status,
			},
		},
	}
}

type languageHandlers struct {
	client          *wolfram.Client
	alphaConfigured bool
}

// preflight returns explanatory text when the server cannot take work.
func (h *languageHandlers) preflight(ctx context.Context) (string, bool) {
	conn := h.client.TestConnection(ctx)
	if !conn.Available {
		return fmt.Sprintf("Wolfram execution server is unavailable at %s: %s", h.client.BaseURL(), conn.Error), false
	}
	if !conn.KernelAvailable {
		return fmt.Sprintf("Wolfram execution server at %s is running but the Wolfram Engine is not available", h.client.BaseURL()), false
	}
	return "", true
}

func (h *languageHandlers) Execute(ctx context.Context, args tools.Args) (tools.Result, error) {
	if h.client == nil {
		return tools.Text(ExecNotConfigured), nil
	}
	if msg, ok := h.preflight(ctx); !ok {
		return tools.Text(msg), nil
	}

	resp, err := h.client.Execute(ctx, wolfram.ExecuteRequest{
		Code:    args.String("code"),
		Timeout: args.Int("timeout"),
		Format:  wolfram.Format(args.String("format")),
	})
	if err != nil {
		return tools.Result{}, err
	}
	if !resp.Success {
		return tools.Text("Wolfram execution failed: " + failureText(resp)), nil
	}

	body := resp.Output
	if body == "" {
		body = resp.Result.String()
	}
	if body == "" {
		body = "(no output)"
	}
	return tools.Text(body + trailer(resp)), nil
}

func (h *languageHandlers) Evaluate(ctx context.Context, args tools.Args) (tools.Result, error) {
	if h.client == nil {
		return tools.Text(ExecNotConfigured), nil
	}
	if msg, ok := h.preflight(ctx); !ok {
		return tools.Text(msg), nil
	}

	resp, err := h.client.Evaluate(ctx, wolfram.EvaluateRequest{
		Expression: args.String("expression"),
		Timeout:    args.Int("timeout"),
	})
	if err != nil {
		return tools.Result{}, err
	}
	if !resp.Success {
		return tools.Text("Wolfram evaluation failed: " + failureText(resp)), nil
	}

	body := resp.Result.String()
	if body == "" {
		body = resp.Output
	}
	if body == "" {
		body = "(no result)"
	}
	return tools.Text(body + trailer(resp)), nil
}

func (h *languageHandlers) Status(ctx context.Context, _ tools.Args) (tools.Result, error) {
	var b strings.Builder

	if h.alphaConfigured {
		b.WriteString("Wolfram|Alpha: configured\n")
	} else {
		b.WriteString("Wolfram|Alpha: not configured\n")
	}

	if h.client == nil {
		b.WriteString("Execution server: not configured")
		return tools.Text(b.String()), nil
	}

	conn := h.client.TestConnection(ctx)
	fmt.Fprintf(&b, "Execution server: %s\n", h.client.BaseURL())
	if !conn.Available {
		fmt.Fprintf(&b, "Status: unavailable\nError: %s", conn.Error)
		return tools.Text(b.String()), nil
	}

	b.WriteString("Status: available\n")
	if conn.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", conn.Version)
	}
	if conn.KernelAvailable {
		b.WriteString("Wolfram Engine: available")
	} else {
		b.WriteString("Wolfram Engine: not available")
	}
	return tools.Text(b.String()), nil
}

func failureText(resp *wolfram.Response) string {
	if resp.Error != "" {
		return resp.Error
	}
	return "unknown error"
}

// trailer renders warnings and execution time after the result body.
func trailer(resp *wolfram.Response) string {
	var b strings.Builder
	if len(resp.Warnings) > 0 {
		b.WriteString("\n\n**Warnings:**")
		for _, w := range resp.Warnings {
			b.WriteString("\n- ")
			b.WriteString(w)
		}
	}
	if resp.ExecutionTime != nil {
		fmt.Fprintf(&b, "\n\n*Execution time: %ss*", strconv.FormatFloat(*resp.ExecutionTime, 'f', -1, 64))
	}
	return b.String()
}

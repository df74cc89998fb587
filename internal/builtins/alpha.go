// ABOUTME: Alpha pack exposes Wolfram|Alpha natural-language queries as tools.
// ABOUTME: Short-circuits with a configuration hint when no app id is set.

package builtins

import (
	"context"

	"github.com/2389/wolfram-gateway/internal/tools"
	"github.com/2389/wolfram-gateway/internal/wolframalpha"
)

// AlphaNotConfigured is returned by the alpha tools when no client exists.
const AlphaNotConfigured = "Wolfram|Alpha API key not configured. Set wolfram_alpha.app_id or the WOLFRAM_ALPHA_APPID environment variable to enable this tool."

// AlphaPack creates the Wolfram|Alpha pack.
func AlphaPack(state *State) tools.Pack {
	h := &alphaHandlers{client: state.Alpha}

	queryFields := []tools.Field{
		{Name: "query", Type: tools.TypeString, Description: "Natural language query, e.g. 'population of France' or 'integrate x^2'", Required: true},
		{Name: "units", Type: tools.TypeString, Description: "Unit system for the answer", Enum: []string{"metric", "nonmetric"}},
		{Name: "location", Type: tools.TypeString, Description: "Location used for location-dependent queries"},
	}

	fullFields := append(append([]tools.Field(nil), queryFields...), tools.Field{
		Name: "include_images", Type: tools.TypeBoolean, Description: "Include result image links", Default: true,
	})

	return tools.Pack{
		ID: "builtin:wolfram_alpha",
		Tools: []tools.Spec{
			{
				Name:        "wolfram_alpha",
				Description: "Ask Wolfram|Alpha a question in natural language and get a plain text answer",
				Fields:      queryFields,
				ErrorPrefix: "Error querying Wolfram|Alpha",
				Handler:     h.Query,
			},
			{
				Name:        "wolfram_alpha_full",
				Description: "Ask Wolfram|Alpha a question and get every result pod with images, assumptions, and warnings",
				Fields:      fullFields,
				ErrorPrefix: "Error querying Wolfram|Alpha",
				Handler:     h.FullQuery,
			},
		},
	}
}

type alphaHandlers struct {
	client *wolframalpha.Client
}

func queryOptions(args tools.Args) wolframalpha.Options {
	return wolframalpha.Options{
		Units:    args.String("units"),
		Location: args.String("location"),
	}
}

func (h *alphaHandlers) Query(ctx context.Context, args tools.Args) (tools.Result, error) {
	if h.client == nil {
		return tools.Text(AlphaNotConfigured), nil
	}

	text, err := h.client.SimpleQuery(ctx, args.String("query"), queryOptions(args))
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Text(text), nil
}

func (h *alphaHandlers) FullQuery(ctx context.Context, args tools.Args) (tools.Result, error) {
	if h.client == nil {
		return tools.Text(AlphaNotConfigured), nil
	}

	opts := queryOptions(args)
	if !args.Bool("include_images") {
		opts.Format = "plaintext"
	}

	summary, err := h.client.FullQuery(ctx, args.String("query"), opts)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Text(summary.Markdown(args.Bool("include_images"))), nil
}

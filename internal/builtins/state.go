// ABOUTME: Gateway state holding the optional backend clients and pack registration.
// ABOUTME: A nil client means its tool family is unconfigured, not that startup failed.

package builtins

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/2389/wolfram-gateway/internal/config"
	"github.com/2389/wolfram-gateway/internal/tools"
	"github.com/2389/wolfram-gateway/internal/upstream"
	"github.com/2389/wolfram-gateway/internal/wolfram"
	"github.com/2389/wolfram-gateway/internal/wolframalpha"
)

// State holds the backend clients the tools call. Either may be nil.
type State struct {
	Alpha *wolframalpha.Client
	Exec  *wolfram.Client
}

// Options are the process-level inputs to Initialize that do not live in config.
type Options struct {
	Version    string
	HTTPClient *http.Client
	Observer   upstream.Observer
	Logger     *slog.Logger
}

// Initialize builds the backend clients from cfg. Missing credentials leave
// the corresponding client nil.
func Initialize(cfg *config.Config, opts Options) (*State, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := "wolfram-gateway"
	if opts.Version != "" {
		userAgent += "/" + opts.Version
	}

	state := &State{}

	alpha, err := wolframalpha.New(wolframalpha.Config{
		AppID:      cfg.WolframAlpha.AppID,
		BaseURL:    cfg.WolframAlpha.BaseURL,
		Timeout:    cfg.WolframAlpha.Timeout,
		UserAgent:  userAgent,
		HTTPClient: opts.HTTPClient,
		Observer:   opts.Observer,
	})
	switch {
	case errors.Is(err, wolframalpha.ErrNoAppID):
		logger.Warn("Wolfram|Alpha app id not set, wolfram_alpha tools will report missing configuration")
	case err != nil:
		return nil, fmt.Errorf("creating wolfram alpha client: %w", err)
	default:
		state.Alpha = alpha
	}

	exec, err := wolfram.New(wolfram.Config{
		BaseURL:    cfg.Execution.BaseURL,
		Timeout:    cfg.Execution.Timeout,
		UserAgent:  userAgent,
		HTTPClient: opts.HTTPClient,
		Observer:   opts.Observer,
	})
	switch {
	case errors.Is(err, wolfram.ErrNoBaseURL):
		logger.Warn("execution server url not set, wolfram_execute tools will report missing configuration")
	case err != nil:
		return nil, fmt.Errorf("creating execution client: %w", err)
	default:
		state.Exec = exec
	}

	logger.Info("backends initialized",
		"wolfram_alpha", state.Alpha != nil,
		"execution", state.Exec != nil,
	)

	return state, nil
}

// Packs returns every builtin pack bound to state.
func Packs(state *State) []tools.Pack {
	return []tools.Pack{
		MathPack(),
		AlphaPack(state),
		LanguagePack(state),
	}
}

// RegisterAll registers every builtin pack with the registry.
func RegisterAll(registry *tools.Registry, state *State) error {
	for _, pack := range Packs(state) {
		if err := registry.RegisterPack(pack); err != nil {
			return fmt.Errorf("registering %s: %w", pack.ID, err)
		}
	}
	return nil
}

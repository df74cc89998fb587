// ABOUTME: Entry point for wolfram-gateway, the authenticated MCP tool server
// ABOUTME: Dispatches the serve, init, health, tools and version commands

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/wolfram-gateway/internal/builtins"
	"github.com/2389/wolfram-gateway/internal/config"
	"github.com/2389/wolfram-gateway/internal/gateway"
	"github.com/2389/wolfram-gateway/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                 _  __                                 _
 __      _____ | |/ _|_ __ __ _ _ __ ___         __ _ | |_ ___
 \ \ /\ / / _ \| | |_| '__/ _' | '_ ' _ \ _____ / _' || __/ _ \
  \ V  V / (_) | |  _| | | (_| | | | | | |_____| (_| || ||  __/
   \_/\_/ \___/|_|_| |_|  \__,_|_| |_| |_|      \__, | \__\___|
                                                |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: WOLFRAM_GATEWAY_CONFIG env var > XDG_CONFIG_HOME/wolfram-gateway/config.yaml > ~/.config/wolfram-gateway/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("WOLFRAM_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "wolfram-gateway", "config.yaml")
}

func usage() {
	fmt.Println("Usage: wolfram-gateway <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Start the gateway server")
	fmt.Println("  init       Create a new config file interactively")
	fmt.Println("  health     Check the health of a running gateway")
	fmt.Println("  tools      List the tools this gateway exposes")
	fmt.Println("  version    Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin, os.Stdout)
	case "health":
		err = runHealth(ctx)
	case "tools":
		err = runTools(os.Stdout)
	case "version", "--version", "-v":
		fmt.Println(version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:         %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:           %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Print("Auth:           ")
	if cfg.AuthEnabled() {
		fmt.Println("bearer token")
	} else {
		yellow.Println("disabled")
	}
	green.Print("    ▶ ")
	fmt.Print("Wolfram|Alpha:  ")
	printConfigured(cfg.WolframAlpha.AppID != "", "app id set")
	green.Print("    ▶ ")
	fmt.Print("Execution:      ")
	printConfigured(cfg.Execution.BaseURL != "", cfg.Execution.BaseURL)
	if cfg.RateLimit.RequestsPerMinute > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Rate limit:     %d/min per client\n", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:        %s\n", cfg.Metrics.Path)
	}
	fmt.Println()

	logger.Info("starting wolfram-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"version", version,
	)

	gw, err := gateway.New(cfg, logger, gateway.WithVersion(version))
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func printConfigured(ok bool, detail string) {
	if !ok {
		color.New(color.FgYellow).Println("not configured")
		return
	}
	fmt.Println(detail)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var health gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	fmt.Printf("%s %s (%s)\n", health.Status, health.Service, health.Version)
	fmt.Printf("auth:  %s\n", health.Auth)
	fmt.Printf("tools: %s\n", strings.Join(health.Tools, ", "))
	return nil
}

// runTools prints every registered tool with its arguments. Building the
// registry makes no network calls, so this works without a running gateway.
func runTools(out io.Writer) error {
	cfg, err := config.LoadOrDefault(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(config.LoggingConfig{Level: "error"}, io.Discard)
	state, err := builtins.Initialize(cfg, builtins.Options{Version: version, Logger: logger})
	if err != nil {
		return err
	}
	registry := tools.NewRegistry(logger)
	if err := builtins.RegisterAll(registry, state); err != nil {
		return err
	}

	printTools(out, registry)
	return nil
}

func printTools(out io.Writer, registry *tools.Registry) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	for _, info := range registry.List() {
		cyan.Fprint(out, info.Name)
		fmt.Fprintf(out, "  %s\n", info.Description)

		fields, _ := registry.Fields(info.Name)
		for _, f := range fields {
			marker := " "
			if f.Required {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-16s %-8s", marker, f.Name, f.Type)
			if f.Default != nil {
				gray.Fprintf(out, " default=%v", f.Default)
			}
			if len(f.Enum) > 0 {
				gray.Fprintf(out, " one of %s", strings.Join(f.Enum, "|"))
			}
			fmt.Fprintln(out)
		}
	}
}

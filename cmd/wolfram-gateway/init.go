// ABOUTME: Interactive init command that writes a starter config file
// ABOUTME: Renders YAML or TOML depending on the chosen file extension

package main

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/wolfram-gateway/internal/config"
)

const configHeader = "# wolfram-gateway configuration\n# Generated by wolfram-gateway init\n"

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "wolfram-gateway configuration setup")
	fmt.Fprintln(out, "===================================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path (.yaml or .toml)", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, out, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.Default()

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP address", config.DefaultHTTPAddr)
	cfg.Server.PublicURL = prompt(reader, out, "Public URL (leave empty if not behind a proxy)", "")

	fmt.Fprintln(out, "\n--- Authentication ---")
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	cfg.Auth.Token = prompt(reader, out, "Bearer token (enter 'none' to disable auth)", token)
	if strings.EqualFold(cfg.Auth.Token, "none") {
		cfg.Auth.Token = ""
	}

	fmt.Fprintln(out, "\n--- Backends ---")
	cfg.WolframAlpha.AppID = prompt(reader, out, "Wolfram|Alpha app id (leave empty to disable)", "")
	cfg.Execution.BaseURL = prompt(reader, out, "Execution server URL (leave empty to disable)", "")

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	cfg.Logging.Format = prompt(reader, out, "Log format (text/json)", "text")

	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := renderConfig(cfg, outputFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// 0600: the file holds the bearer secret and app id
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  wolfram-gateway serve")

	return nil
}

// renderConfig encodes cfg as TOML when path ends in .toml and as YAML otherwise.
func renderConfig(cfg *config.Config, path string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encoding TOML: %w", err)
		}
		return buf.Bytes(), nil
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

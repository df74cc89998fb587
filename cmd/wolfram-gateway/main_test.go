// ABOUTME: Tests for the CLI helpers: config path resolution, init output and tool listing
// ABOUTME: Init output is loaded back through the config package to prove it is valid

package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wolfram-gateway/internal/builtins"
	"github.com/2389/wolfram-gateway/internal/config"
	"github.com/2389/wolfram-gateway/internal/tools"
)

func TestGetConfigPath(t *testing.T) {
	t.Run("env var wins", func(t *testing.T) {
		t.Setenv("WOLFRAM_GATEWAY_CONFIG", "/tmp/custom.toml")
		assert.Equal(t, "/tmp/custom.toml", getConfigPath())
	})

	t.Run("XDG config home", func(t *testing.T) {
		t.Setenv("WOLFRAM_GATEWAY_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "wolfram-gateway", "config.yaml"), getConfigPath())
	})
}

func TestRenderConfig_LoadsBack(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Token = "tok"
	cfg.WolframAlpha.AppID = "APPID"
	cfg.Execution.BaseURL = "http://localhost:9000"

	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			data, err := renderConfig(cfg, name)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), configHeader))

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, data, 0600))

			loaded, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, "tok", loaded.Auth.Token)
			assert.Equal(t, "APPID", loaded.WolframAlpha.AppID)
			assert.Equal(t, "http://localhost:9000", loaded.Execution.BaseURL)
			assert.Equal(t, config.DefaultAlphaTimeout, loaded.WolframAlpha.Timeout)
		})
	}
}

func TestRunInit_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw", "config.yaml")
	answers := strings.Join([]string{
		path,           // config path
		"0.0.0.0:9090", // http addr
		"",             // public url
		"none",         // token
		"",             // app id
		"",             // execution url
		"debug",        // log level
		"json",         // log format
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(answers), &out))
	assert.Contains(t, out.String(), "Config written to "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.HTTPAddr)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestPrintTools(t *testing.T) {
	state, err := builtins.Initialize(config.Default(), builtins.Options{Logger: slog.Default()})
	require.NoError(t, err)
	registry := tools.NewRegistry(slog.Default())
	require.NoError(t, builtins.RegisterAll(registry, state))

	var out bytes.Buffer
	printTools(&out, registry)

	text := out.String()
	assert.Contains(t, text, "wolfram_execute")
	assert.Contains(t, text, "* code")
	assert.Contains(t, text, "default=30")
	assert.Contains(t, text, "metric|nonmetric")
}

func TestColorHandler_WritesRecords(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug"}, &out)
	logger.With("component", "test").WithGroup("req").Debug("hello", "id", 7)

	line := out.String()
	assert.Contains(t, line, "hello")
	assert.Contains(t, line, "component=")
	assert.Contains(t, line, "req.id=")
}

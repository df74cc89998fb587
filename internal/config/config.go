// ABOUTME: Configuration loading and parsing for wolfram-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and kept when a file omits a section.
const (
	DefaultHTTPAddr         = "localhost:8080"
	DefaultAlphaBaseURL     = "https://api.wolframalpha.com/v2/query"
	DefaultAlphaTimeout     = 30 * time.Second
	DefaultExecutionTimeout = 30 * time.Second
	DefaultMetricsPath      = "/metrics"
)

// Config represents the complete wolfram-gateway configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" toml:"server"`
	Auth         AuthConfig         `yaml:"auth" toml:"auth"`
	WolframAlpha WolframAlphaConfig `yaml:"wolfram_alpha" toml:"wolfram_alpha"`
	Execution    ExecutionConfig    `yaml:"execution" toml:"execution"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" toml:"metrics"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit" toml:"rate_limit"`
	CORS         CORSConfig         `yaml:"cors" toml:"cors"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// PublicURL is the externally visible base URL, used when advertising the
	// stream message endpoint to clients behind a proxy.
	PublicURL string `yaml:"public_url" toml:"public_url"`
}

// AuthConfig holds the bearer secret. Empty disables authentication.
type AuthConfig struct {
	Token string `yaml:"token" toml:"token"`
}

// WolframAlphaConfig configures the natural-language query backend.
// An empty AppID disables the wolfram_alpha tool family.
type WolframAlphaConfig struct {
	AppID   string        `yaml:"app_id" toml:"app_id"`
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// ExecutionConfig configures the Wolfram Language execution backend.
// An empty BaseURL disables the execution tool family.
type ExecutionConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// RateLimitConfig bounds requests per client. RequestsPerMinute <= 0 disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int `yaml:"burst" toml:"burst"`
}

// CORSConfig lists origins allowed to call the gateway from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// Default returns a configuration usable without any file: local listener,
// auth disabled, both backends unconfigured.
func Default() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: DefaultHTTPAddr},
		WolframAlpha: WolframAlphaConfig{
			BaseURL:    DefaultAlphaBaseURL,
			Timeout:    DefaultAlphaTimeout,
			TimeoutRaw: DefaultAlphaTimeout.String(),
		},
		Execution: ExecutionConfig{
			Timeout:    DefaultExecutionTimeout,
			TimeoutRaw: DefaultExecutionTimeout.String(),
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Path: DefaultMetricsPath},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the file at path, falling back to Default when the file
// does not exist. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// envOverrides maps environment variables onto config fields. They win over file values.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"AUTH_TOKEN", func(c *Config, v string) { c.Auth.Token = v }},
	{"WOLFRAM_ALPHA_APPID", func(c *Config, v string) { c.WolframAlpha.AppID = v }},
	{"WOLFRAM_SERVER_URL", func(c *Config, v string) { c.Execution.BaseURL = v }},
	{"WOLFRAM_GATEWAY_ADDR", func(c *Config, v string) { c.Server.HTTPAddr = v }},
	{"LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = strings.ToLower(v) }},
}

// ApplyEnv overlays the supported environment variables onto the config.
// Unset variables leave the existing value untouched.
func (c *Config) ApplyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok {
			o.apply(c, strings.TrimSpace(v))
		}
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return errors.New("server.http_addr is required")
	}

	if c.Server.PublicURL != "" {
		if err := validateURL(c.Server.PublicURL); err != nil {
			return fmt.Errorf("server.public_url: %w", err)
		}
	}

	if c.WolframAlpha.BaseURL == "" {
		return errors.New("wolfram_alpha.base_url is required")
	}
	if err := validateURL(c.WolframAlpha.BaseURL); err != nil {
		return fmt.Errorf("wolfram_alpha.base_url: %w", err)
	}

	if c.Execution.BaseURL != "" {
		if err := validateURL(c.Execution.BaseURL); err != nil {
			return fmt.Errorf("execution.base_url: %w", err)
		}
	}

	if c.WolframAlpha.Timeout <= 0 {
		return errors.New("wolfram_alpha.timeout must be positive")
	}
	if c.Execution.Timeout <= 0 {
		return errors.New("execution.timeout must be positive")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}

	if c.RateLimit.Burst < 0 {
		return errors.New("rate_limit.burst must not be negative")
	}

	return nil
}

// validateURL requires an absolute http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.WolframAlpha.TimeoutRaw != "" {
		cfg.WolframAlpha.Timeout, err = time.ParseDuration(cfg.WolframAlpha.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing wolfram_alpha.timeout %q: %w", cfg.WolframAlpha.TimeoutRaw, err)
		}
	}

	if cfg.Execution.TimeoutRaw != "" {
		cfg.Execution.Timeout, err = time.ParseDuration(cfg.Execution.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing execution.timeout %q: %w", cfg.Execution.TimeoutRaw, err)
		}
	}

	return nil
}

// AuthEnabled reports whether a bearer secret is configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.Token != ""
}

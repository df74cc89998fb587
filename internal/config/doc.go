// Package config handles configuration loading for wolfram-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overlaid with a small set of well-known environment variables.
// A missing file is not an error: LoadOrDefault falls back to Default.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from WOLFRAM_GATEWAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/wolfram-gateway/gateway.yaml
//  3. ~/.config/wolfram-gateway/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  token: "${GATEWAY_TOKEN}"
//
// # Environment Overrides
//
// These variables win over file values when set:
//
//	AUTH_TOKEN            auth.token
//	WOLFRAM_ALPHA_APPID   wolfram_alpha.app_id
//	WOLFRAM_SERVER_URL    execution.base_url
//	WOLFRAM_GATEWAY_ADDR  server.http_addr
//	LOG_LEVEL             logging.level
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  public_url: "https://wolfram.example.com"
//
//	auth:
//	  token: "${AUTH_TOKEN}"      # empty disables auth (logged once at startup)
//
//	wolfram_alpha:
//	  app_id: "${WOLFRAM_ALPHA_APPID}"
//	  timeout: "30s"
//
//	execution:
//	  base_url: "http://localhost:8000"
//	  timeout: "30s"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
//	rate_limit:
//	  requests_per_minute: 60
//	  burst: 10
//
//	cors:
//	  allowed_origins: ["*"]
//
// Duration values use Go's time.ParseDuration syntax.
package config

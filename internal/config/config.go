// Package config loads and validates gateway configuration.
//
// DESIGN: Configuration is layered:
//  1. Built-in defaults (the providers the original deployment fronted)
//  2. Optional YAML file
//  3. Environment variable overrides (GATEWAY_TOKEN, PORT, ...)
//
// The resulting Config is validated once at startup and never mutated
// afterwards; request handlers only ever read it.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" decode cleanly.
type Duration time.Duration

// UnmarshalYAML decodes either a Go duration string or an integer
// millisecond count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := value.Decode(&ms); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level gateway configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Gateway    GatewayConfig             `yaml:"gateway"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Monitoring MonitoringConfig          `yaml:"monitoring"`
	Log        LogConfig                 `yaml:"log"`
}

// ServerConfig holds inbound HTTP server settings.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// GatewayConfig holds the shared-gateway credential and upstream call limits.
type GatewayConfig struct {
	// Token authenticates this proxy to the shared gateway infrastructure.
	// It is distinct from any provider API key and is never logged unmasked.
	Token           string   `yaml:"token"`
	UpstreamTimeout Duration `yaml:"upstream_timeout"`
}

// ProviderConfig describes one upstream provider reachable through the gateway.
type ProviderConfig struct {
	// BaseURL is the upstream base; the remaining request path and query
	// are spliced onto it verbatim.
	BaseURL string `yaml:"base_url"`

	// AuthHeader names the client-facing header carrying the backend
	// credential. The value is forwarded unmodified: when the upstream
	// protocol requires a scheme prefix (AuthPrefix), the client is
	// contractually responsible for including it.
	AuthHeader string `yaml:"auth_header"`
	AuthPrefix string `yaml:"auth_prefix"`

	// VersionHeader/VersionValue attach a provider version header when the
	// client does not send one (e.g. anthropic-version).
	VersionHeader string `yaml:"version_header"`
	VersionValue  string `yaml:"version_value"`

	// Translation names the response-schema translation rule available for
	// this provider ("openai-chat" maps Anthropic messages to OpenAI chat
	// completions). Empty means no rule.
	Translation string `yaml:"translation"`

	// BodyDefaults fills missing top-level JSON fields on forwarded bodies.
	// Only providers that reject requests without a field get one; raw
	// bytes win whenever nothing is missing.
	BodyDefaults map[string]any `yaml:"body_defaults"`

	// SigV4 switches the provider to AWS request signing (Bedrock) instead
	// of client header relay.
	SigV4       bool   `yaml:"sigv4"`
	SigV4Region string `yaml:"sigv4_region"`
}

// MonitoringConfig holds telemetry and usage store settings.
type MonitoringConfig struct {
	// TelemetryPath enables the JSONL request event log when non-empty.
	TelemetryPath string `yaml:"telemetry_path"`
	// UsageDBPath enables the sqlite usage store when non-empty.
	UsageDBPath string `yaml:"usage_db_path"`
	// MetricsEnabled exposes Prometheus metrics at /metrics.
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration: the providers the original
// deployment fronted, addressed by their native client conventions.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			ReadTimeout:  Duration(DefaultServerReadTimeout),
			WriteTimeout: Duration(DefaultServerWriteTimeout),
		},
		Gateway: GatewayConfig{
			UpstreamTimeout: Duration(DefaultUpstreamTimeout),
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {
				BaseURL:       "https://api.anthropic.com",
				AuthHeader:    "x-api-key",
				VersionHeader: "anthropic-version",
				VersionValue:  DefaultAnthropicVersion,
				Translation:   "openai-chat",
				BodyDefaults:  map[string]any{"max_tokens": DefaultAnthropicMaxTokens},
			},
			"openai": {
				BaseURL:    "https://api.openai.com",
				AuthHeader: "Authorization",
				AuthPrefix: "Bearer ",
			},
			"google": {
				BaseURL:    "https://generativelanguage.googleapis.com",
				AuthHeader: "x-goog-api-key",
			},
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses YAML config data over the defaults. Used by tests
// and embedded deployments.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over the loaded config.
func (c *Config) applyEnv() {
	if v := os.Getenv("GATEWAY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Gateway.UpstreamTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	// Per-provider base URL overrides: ANTHROPIC_BASE_URL, OPENAI_BASE_URL, ...
	for key, p := range c.Providers {
		envKey := strings.ToUpper(strings.ReplaceAll(key, "-", "_")) + "_BASE_URL"
		if v := os.Getenv(envKey); v != "" {
			p.BaseURL = v
			c.Providers[key] = p
		}
	}
}

// Validate checks the invariants the request path relies on. A config that
// fails validation is a fatal startup condition.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gateway.Token) == "" {
		return fmt.Errorf("gateway token is required (set GATEWAY_TOKEN or gateway.token)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Gateway.UpstreamTimeout <= 0 {
		c.Gateway.UpstreamTimeout = Duration(DefaultUpstreamTimeout)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	for key, p := range c.Providers {
		u, err := url.Parse(p.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("provider %q: base_url must be an http(s) URL, got %q", key, p.BaseURL)
		}
		if !p.SigV4 && strings.TrimSpace(p.AuthHeader) == "" {
			return fmt.Errorf("provider %q: auth_header is required", key)
		}
		if p.SigV4 && strings.TrimSpace(p.SigV4Region) == "" {
			return fmt.Errorf("provider %q: sigv4_region is required", key)
		}
	}
	return nil
}

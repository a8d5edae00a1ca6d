// Package monitoring - types.go defines shared telemetry types.
//
// DESIGN: These types are used by both gateway/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
package monitoring

import "time"

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// RequestEvent captures one request through the proxy.
type RequestEvent struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Method           string    `json:"method"`
	Path             string    `json:"path"`
	ClientIP         string    `json:"client_ip"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model,omitempty"`
	RequestBodySize  int       `json:"request_body_size"`
	ResponseBodySize int       `json:"response_body_size"`
	StatusCode       int       `json:"status_code"`
	Stream           bool      `json:"stream"`
	Translated       bool      `json:"translated"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	ErrorClass       string    `json:"error_class,omitempty"` // client, upstream, transport, timeout, translation, internal
	UpstreamLatencyMs int64    `json:"upstream_latency_ms"`
	TotalLatencyMs   int64     `json:"total_latency_ms"`
	// Usage from the provider response when present, estimated otherwise.
	InputTokens     int  `json:"input_tokens,omitempty"`
	OutputTokens    int  `json:"output_tokens,omitempty"`
	TokensEstimated bool `json:"tokens_estimated,omitempty"`
}

// InitEvent captures startup configuration: one line at boot makes gateway
// logs self-describing when collected later.
type InitEvent struct {
	Timestamp            time.Time      `json:"timestamp"`
	Event                string         `json:"event"`
	ServerPort           int            `json:"server_port"`
	ServerReadTimeoutMs  int64          `json:"server_read_timeout_ms"`
	ServerWriteTimeoutMs int64          `json:"server_write_timeout_ms"`
	UpstreamTimeoutMs    int64          `json:"upstream_timeout_ms"`
	Providers            []InitProvider `json:"providers,omitempty"`
	TelemetryPath        string         `json:"telemetry_path,omitempty"`
	UsageDBPath          string         `json:"usage_db_path,omitempty"`
	MetricsEnabled       bool           `json:"metrics_enabled"`
}

// InitProvider is one configured provider in the init event. Credentials
// never appear here, only whether headers are expected.
type InitProvider struct {
	Key           string `json:"key"`
	BaseURL       string `json:"base_url"`
	AuthHeader    string `json:"auth_header,omitempty"`
	VersionHeader string `json:"version_header,omitempty"`
	Translation   string `json:"translation,omitempty"`
	SigV4         bool   `json:"sigv4,omitempty"`
}

// TelemetryConfig controls the JSONL event log.
type TelemetryConfig struct {
	Enabled bool
	LogPath string
}

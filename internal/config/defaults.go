// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultPort is the listen port when none is configured.
const DefaultPort = 9000

// DefaultUpstreamTimeout bounds a single upstream call. For streaming
// requests it covers dial plus response headers, never the event stream.
const DefaultUpstreamTimeout = 30 * time.Second

// DefaultDialTimeout is the TCP dial timeout.
const DefaultDialTimeout = 30 * time.Second

// DefaultMaxIdleConns bounds the upstream connection pool.
const DefaultMaxIdleConns = 100

// MaxRequestBodySize is the maximum allowed request body (50MB).
const MaxRequestBodySize = 50 * 1024 * 1024

// DefaultBufferSize is the standard I/O buffer size for stream copies.
const DefaultBufferSize = 4096

// DefaultServerReadTimeout for the inbound HTTP server.
const DefaultServerReadTimeout = 2 * time.Minute

// DefaultServerWriteTimeout for the inbound HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// =============================================================================
// LOGGING AND TELEMETRY
// =============================================================================

// MaxErrorBodyLogLen limits upstream error bodies in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// PROVIDER DEFAULTS
// =============================================================================

// DefaultAnthropicVersion is attached to anthropic requests when the client
// does not supply its own anthropic-version header.
const DefaultAnthropicVersion = "2023-06-01"

// DefaultAnthropicMaxTokens fills a missing max_tokens field on anthropic
// message requests. Anthropic rejects requests without it.
const DefaultAnthropicMaxTokens = 1024

// Package gateway - errors.go defines the error taxonomy and response shape.
//
// DESIGN: Every failure maps to exactly one class with a fixed status and
// log level:
//   - client:      4xx the proxy produced itself (bad provider, missing key)
//   - upstream:    non-2xx relayed from the provider
//   - transport:   connection refused, DNS failure, reset -> 502
//   - timeout:     upstream deadline exceeded -> 504
//   - translation: schema conversion failed on a parsable body -> 500
//   - internal:    everything else -> 500, generic message to the client
//
// Nothing is retried; every failure is reported upward in one pass.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
)

// errClass labels a failure for the error envelope and telemetry.
type errClass string

const (
	errClassClient      errClass = "client_error"
	errClassUpstream    errClass = "upstream_error"
	errClassTransport   errClass = "transport_error"
	errClassTimeout     errClass = "timeout_error"
	errClassTranslation errClass = "translation_error"
	errClassInternal    errClass = "gateway_error"
)

// errorBody is the JSON error envelope returned to clients.
type errorBody struct {
	Error errorDetail `json:"error"`
	// Original carries the untranslated upstream body on translation
	// failures so callers can diagnose the mismatch.
	Original json.RawMessage `json:"original,omitempty"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	// Providers lists configured provider keys on unknown-provider errors.
	Providers []string `json:"providers,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, class errClass, msg string) {
	writeErrorBody(w, status, errorBody{Error: errorDetail{Message: msg, Type: string(class)}})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// classifyDispatchError maps an upstream call failure to status and class.
// A timeout is attributed to the upstream call, not the inbound request.
func classifyDispatchError(err error) (int, errClass) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, errClassTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return http.StatusGatewayTimeout, errClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout, errClassTimeout
	}
	return http.StatusBadGateway, errClassTransport
}

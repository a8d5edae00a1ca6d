// Package utils provides small helpers shared across the gateway.
package utils

import (
	"bytes"
	"encoding/json"
)

// MaskKey masks a credential for safe logging (shows first 8 and last 4 chars).
// Use this anywhere a client credential or the gateway token would otherwise
// end up in a log line.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// MarshalNoEscape marshals JSON without HTML escaping.
// Translated response envelopes must carry model text exactly as produced;
// the default encoder would rewrite '<' as <.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline; remove it for parity with json.Marshal.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

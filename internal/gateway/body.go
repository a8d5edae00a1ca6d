// Package gateway - body.go inspects the inbound request body.
//
// DESIGN: The body is read to completion exactly once. The raw byte
// buffer — not a re-serialized structure — is the default forward
// candidate, so providers that need no rewrite get byte-exact
// passthrough (field order and whitespace preserved, which matters for
// downstream signature checks). Only a provider-specific rewrite rule
// (body defaults, model prefix sanitization) replaces the buffer, and
// only when it actually changes something.
package gateway

import (
	"mime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/relaypoint/ai-gateway/internal/providers"
)

// inspection is the result of a single body pass.
type inspection struct {
	forwardBody []byte // raw bytes unless a provider rule rewrote them
	isJSON      bool   // content type declared JSON and the buffer parsed
	stream      bool   // body contained exactly boolean true at "stream"
	model       string // best-effort, for telemetry only
	rewritten   bool
}

// bodyMethods may carry a request body worth inspecting.
func bodyCarryingMethod(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// jsonContentType reports whether the declared content type indicates JSON.
func jsonContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// inspectBody parses the buffered body opportunistically. A malformed JSON
// body is logged and forwarded as-is, not rejected: the proxy's contract is
// transport-level, not schema validation.
func inspectBody(p *providers.Provider, method, contentType string, raw []byte) inspection {
	ins := inspection{forwardBody: raw}
	if !bodyCarryingMethod(method) || len(raw) == 0 {
		return ins
	}
	if !jsonContentType(contentType) {
		return ins
	}
	if !gjson.ValidBytes(raw) {
		log.Debug().Str("provider", p.Key).Int("size", len(raw)).
			Msg("body: malformed JSON, forwarding raw bytes as non-streaming")
		return ins
	}
	ins.isJSON = true

	// Streaming only on exactly boolean true; "stream": "true" is not a
	// streaming request.
	ins.stream = gjson.GetBytes(raw, "stream").Type == gjson.True
	ins.model = gjson.GetBytes(raw, "model").String()

	ins.forwardBody = applyProviderRewrites(p, raw, &ins)
	return ins
}

// applyProviderRewrites applies the provider's body rules. Raw bytes win
// unless a rule actually fires.
func applyProviderRewrites(p *providers.Provider, raw []byte, ins *inspection) []byte {
	body := raw

	// Strip a redundant "<provider>/" model prefix ("anthropic/claude-x").
	if prefix := p.Key + "/"; strings.HasPrefix(ins.model, prefix) {
		stripped := strings.TrimPrefix(ins.model, prefix)
		if patched, err := sjson.SetBytes(body, "model", stripped); err == nil {
			body = patched
			ins.model = stripped
			ins.rewritten = true
		}
	}

	// Fill missing fields the provider refuses to default itself.
	for field, value := range p.BodyDefaults {
		if gjson.GetBytes(body, field).Exists() {
			continue
		}
		patched, err := sjson.SetBytes(body, field, value)
		if err != nil {
			log.Warn().Err(err).Str("field", field).Msg("body: default injection failed")
			continue
		}
		body = patched
		ins.rewritten = true
	}

	if ins.rewritten {
		log.Debug().Str("provider", p.Key).Msg("body: provider rewrite applied")
	}
	return body
}

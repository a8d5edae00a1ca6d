// Package providers holds the immutable provider registry.
//
// DESIGN: The registry is the single place provider-specific deltas live
// (auth header name/prefix, version header, translation rule, body
// defaults). The request pipeline is one parameterized path; it never
// branches on provider names directly.
package providers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/relaypoint/ai-gateway/internal/config"
)

// TranslationRule identifies a response-schema translation a provider
// supports.
type TranslationRule string

const (
	// TranslationNone disables response translation for the provider.
	TranslationNone TranslationRule = ""
	// TranslationOpenAIChat maps an Anthropic messages response to an
	// OpenAI chat.completion envelope.
	TranslationOpenAIChat TranslationRule = "openai-chat"
)

// Provider is one upstream vendor reachable through the shared gateway.
// Values are immutable after Build.
type Provider struct {
	Key           string
	BaseURL       string // normalized, no trailing slash
	AuthHeader    string
	AuthPrefix    string
	VersionHeader string
	VersionValue  string
	Translation   TranslationRule
	BodyDefaults  map[string]any
	SigV4         bool
	SigV4Region   string
}

// CredentialHint is the header spelling clients must use, shown in 401
// error payloads. The prefix is part of the client contract: the gateway
// forwards the value verbatim and never prepends it.
func (p *Provider) CredentialHint() string {
	if p.AuthPrefix != "" {
		return p.AuthHeader + ": " + p.AuthPrefix + "<credential>"
	}
	return p.AuthHeader
}

// Registry maps provider keys to their configuration. Built once at
// startup; read-only afterwards, so request tasks share it without locks.
type Registry struct {
	providers map[string]*Provider
	keys      []string // sorted, for stable error payloads
}

// Build constructs a Registry from validated configuration.
func Build(cfgs map[string]config.ProviderConfig) (*Registry, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	r := &Registry{providers: make(map[string]*Provider, len(cfgs))}
	for key, pc := range cfgs {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("provider key must be non-empty")
		}
		rule := TranslationRule(pc.Translation)
		switch rule {
		case TranslationNone, TranslationOpenAIChat:
		default:
			return nil, fmt.Errorf("provider %q: unknown translation rule %q", key, pc.Translation)
		}
		r.providers[key] = &Provider{
			Key:           key,
			BaseURL:       strings.TrimRight(pc.BaseURL, "/"),
			AuthHeader:    pc.AuthHeader,
			AuthPrefix:    pc.AuthPrefix,
			VersionHeader: pc.VersionHeader,
			VersionValue:  pc.VersionValue,
			Translation:   rule,
			BodyDefaults:  pc.BodyDefaults,
			SigV4:         pc.SigV4,
			SigV4Region:   pc.SigV4Region,
		}
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)
	return r, nil
}

// Lookup returns the provider for a key, or nil if unknown.
func (r *Registry) Lookup(key string) *Provider {
	return r.providers[strings.ToLower(key)]
}

// Keys returns the configured provider keys in sorted order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

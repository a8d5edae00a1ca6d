// Package gateway - router.go resolves providers from the inbound path.
package gateway

import (
	"fmt"
	"strings"

	"github.com/relaypoint/ai-gateway/internal/providers"
)

// route is the resolved target of an inbound request.
type route struct {
	provider      *providers.Provider
	remainingPath string // leading slash, empty when nothing follows the key
	targetURL     string // base + remaining path + original query, verbatim
}

// errUnknownProvider is returned when the first path segment does not name
// a configured provider. The handler turns it into a 404 listing the keys.
type errUnknownProvider struct {
	key  string
	keys []string
}

func (e *errUnknownProvider) Error() string {
	if e.key == "" {
		return fmt.Sprintf("no provider in path; configured providers: %s", strings.Join(e.keys, ", "))
	}
	return fmt.Sprintf("unknown provider %q; configured providers: %s", e.key, strings.Join(e.keys, ", "))
}

// resolveRoute maps /<providerKey>/<rest>?<query> onto the provider's base
// URL. The escaped path and raw query are spliced on verbatim so the
// upstream sees exactly the bytes the client sent (no re-encoding).
func resolveRoute(reg *providers.Registry, escapedPath, rawQuery string) (*route, error) {
	trimmed := strings.TrimPrefix(escapedPath, "/")
	key := trimmed
	rest := ""
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		key = trimmed[:idx]
		rest = trimmed[idx:] // keeps the leading slash
	}
	if key == "" {
		return nil, &errUnknownProvider{keys: reg.Keys()}
	}
	p := reg.Lookup(key)
	if p == nil {
		return nil, &errUnknownProvider{key: key, keys: reg.Keys()}
	}
	if rest == "/" {
		rest = ""
	}
	target := p.BaseURL + rest
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return &route{provider: p, remainingPath: rest, targetURL: target}, nil
}

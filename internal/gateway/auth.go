// Package gateway - auth.go composes outbound authentication headers.
//
// Two credentials travel on every upstream call: the fixed gateway token
// (ours, attached at startup, never derived from client input) and the
// backend credential the client supplied for the provider. The client
// value is forwarded verbatim — if the upstream wants a scheme prefix
// ("Bearer ..."), supplying it is the client's contract, and the relay
// never repairs or infers it.
package gateway

import (
	"fmt"
	"net/http"
	"strings"
)

// GatewayAuthHeader carries the proxy's own credential to the shared
// gateway infrastructure.
const GatewayAuthHeader = "cf-aig-authorization"

// passthroughHeaders are copied from the inbound request when present.
var passthroughHeaders = []string{"Content-Type", "Accept", "anthropic-beta"}

// errMissingCredential is returned when the provider's designated header
// is absent or empty. The message names the exact header the client must
// supply.
type errMissingCredential struct {
	hint string
}

func (e *errMissingCredential) Error() string {
	return fmt.Sprintf("missing backend credential: supply the %s header", e.hint)
}

// buildOutboundHeaders composes the upstream header set for a route.
// SigV4 providers get no relayed credential; signing replaces it later.
func buildOutboundHeaders(rt *route, inbound http.Header, gatewayToken string) (http.Header, error) {
	p := rt.provider
	out := make(http.Header)

	for _, h := range passthroughHeaders {
		if v := inbound.Get(h); v != "" {
			out.Set(h, v)
		}
	}

	out.Set(GatewayAuthHeader, "Bearer "+gatewayToken)

	if !p.SigV4 {
		cred := inbound.Get(p.AuthHeader)
		if strings.TrimSpace(cred) == "" {
			return nil, &errMissingCredential{hint: p.CredentialHint()}
		}
		out.Set(p.AuthHeader, cred)
	}

	// Provider version header: client value wins, config value fills the gap.
	if p.VersionHeader != "" {
		if v := inbound.Get(p.VersionHeader); v != "" {
			out.Set(p.VersionHeader, v)
		} else if p.VersionValue != "" {
			out.Set(p.VersionHeader, p.VersionValue)
		}
	}

	return out, nil
}

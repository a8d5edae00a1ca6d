package gateway

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/ai-gateway/internal/providers"
)

func routeFor(p *providers.Provider) *route {
	return &route{provider: p}
}

func TestBuildOutboundHeaders_ComposesBothCredentials(t *testing.T) {
	p := &providers.Provider{Key: "anthropic", AuthHeader: "x-api-key"}
	inbound := http.Header{}
	inbound.Set("x-api-key", "sk-ant-secret")
	inbound.Set("Content-Type", "application/json")
	inbound.Set("X-Random-Client-Header", "dropped")

	out, err := buildOutboundHeaders(routeFor(p), inbound, "gw-token-123")
	require.NoError(t, err)

	assert.Equal(t, "Bearer gw-token-123", out.Get(GatewayAuthHeader))
	assert.Equal(t, "sk-ant-secret", out.Get("x-api-key"))
	assert.Equal(t, "application/json", out.Get("Content-Type"))
	assert.Empty(t, out.Get("X-Random-Client-Header"))
}

func TestBuildOutboundHeaders_CredentialForwardedVerbatim(t *testing.T) {
	// The client owns the scheme prefix; the relay never adds or repairs it.
	p := &providers.Provider{Key: "openai", AuthHeader: "Authorization", AuthPrefix: "Bearer "}
	inbound := http.Header{}
	inbound.Set("Authorization", "sk-no-prefix")

	out, err := buildOutboundHeaders(routeFor(p), inbound, "gw")
	require.NoError(t, err)
	assert.Equal(t, "sk-no-prefix", out.Get("Authorization"))
}

func TestBuildOutboundHeaders_MissingCredentialNamesHeader(t *testing.T) {
	p := &providers.Provider{Key: "openai", AuthHeader: "Authorization", AuthPrefix: "Bearer "}

	_, err := buildOutboundHeaders(routeFor(p), http.Header{}, "gw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authorization: Bearer <credential>")

	p2 := &providers.Provider{Key: "anthropic", AuthHeader: "x-api-key"}
	_, err = buildOutboundHeaders(routeFor(p2), http.Header{}, "gw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x-api-key")
}

func TestBuildOutboundHeaders_WhitespaceCredentialRejected(t *testing.T) {
	p := &providers.Provider{Key: "anthropic", AuthHeader: "x-api-key"}
	inbound := http.Header{}
	inbound.Set("x-api-key", "   ")

	_, err := buildOutboundHeaders(routeFor(p), inbound, "gw")
	require.Error(t, err)
}

func TestBuildOutboundHeaders_VersionHeaderClientWins(t *testing.T) {
	p := &providers.Provider{
		Key: "anthropic", AuthHeader: "x-api-key",
		VersionHeader: "anthropic-version", VersionValue: "2023-06-01",
	}

	inbound := http.Header{}
	inbound.Set("x-api-key", "sk")
	out, err := buildOutboundHeaders(routeFor(p), inbound, "gw")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01", out.Get("anthropic-version"))

	inbound.Set("anthropic-version", "2024-01-01")
	out, err = buildOutboundHeaders(routeFor(p), inbound, "gw")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", out.Get("anthropic-version"))
}

func TestBuildOutboundHeaders_SigV4SkipsClientCredential(t *testing.T) {
	p := &providers.Provider{Key: "bedrock", SigV4: true, SigV4Region: "us-east-1"}

	out, err := buildOutboundHeaders(routeFor(p), http.Header{}, "gw")
	require.NoError(t, err)
	assert.Equal(t, "Bearer gw", out.Get(GatewayAuthHeader))
}

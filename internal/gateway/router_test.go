package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/ai-gateway/internal/config"
	"github.com/relaypoint/ai-gateway/internal/providers"
)

func testRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	reg, err := providers.Build(map[string]config.ProviderConfig{
		"anthropic": {BaseURL: "https://api.anthropic.com", AuthHeader: "x-api-key"},
		"openai":    {BaseURL: "https://api.openai.com/", AuthHeader: "Authorization", AuthPrefix: "Bearer "},
	})
	require.NoError(t, err)
	return reg
}

func TestResolveRoute_SplicesPathAndQueryVerbatim(t *testing.T) {
	reg := testRegistry(t)

	rt, err := resolveRoute(reg, "/anthropic/v1/messages", "beta=true&x=a%20b")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", rt.provider.Key)
	assert.Equal(t, "/v1/messages", rt.remainingPath)
	assert.Equal(t, "https://api.anthropic.com/v1/messages?beta=true&x=a%20b", rt.targetURL)
}

func TestResolveRoute_TrailingSlashOnBaseURLNormalized(t *testing.T) {
	reg := testRegistry(t)

	rt, err := resolveRoute(reg, "/openai/v1/chat/completions", "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", rt.targetURL)
}

func TestResolveRoute_KeyOnlyPath(t *testing.T) {
	reg := testRegistry(t)

	for _, path := range []string{"/anthropic", "/anthropic/"} {
		rt, err := resolveRoute(reg, path, "")
		require.NoError(t, err, path)
		assert.Equal(t, "", rt.remainingPath, path)
		assert.Equal(t, "https://api.anthropic.com", rt.targetURL, path)
	}
}

func TestResolveRoute_CaseInsensitiveKey(t *testing.T) {
	reg := testRegistry(t)

	rt, err := resolveRoute(reg, "/Anthropic/v1/messages", "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", rt.provider.Key)
}

func TestResolveRoute_UnknownProviderListsKeys(t *testing.T) {
	reg := testRegistry(t)

	_, err := resolveRoute(reg, "/mistral/v1/chat", "")
	require.Error(t, err)

	var unknown *errUnknownProvider
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "mistral", unknown.key)
	assert.Equal(t, []string{"anthropic", "openai"}, unknown.keys)
	assert.Contains(t, err.Error(), `unknown provider "mistral"`)
	assert.Contains(t, err.Error(), "anthropic, openai")
}

func TestResolveRoute_EmptyPath(t *testing.T) {
	reg := testRegistry(t)

	_, err := resolveRoute(reg, "/", "")
	require.Error(t, err)

	var unknown *errUnknownProvider
	require.True(t, errors.As(err, &unknown))
	assert.Empty(t, unknown.key)
	assert.Contains(t, err.Error(), "no provider in path")
}

package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/ai-gateway/internal/config"
)

func TestBuild_NormalizesKeysAndURLs(t *testing.T) {
	reg, err := Build(map[string]config.ProviderConfig{
		"Anthropic": {BaseURL: "https://api.anthropic.com/", AuthHeader: "x-api-key"},
		"openai":    {BaseURL: "https://api.openai.com", AuthHeader: "Authorization", AuthPrefix: "Bearer "},
	})
	require.NoError(t, err)

	p := reg.Lookup("anthropic")
	require.NotNil(t, p)
	assert.Equal(t, "https://api.anthropic.com", p.BaseURL)

	// Lookup is case-insensitive, keys are sorted.
	assert.NotNil(t, reg.Lookup("ANTHROPIC"))
	assert.Equal(t, []string{"anthropic", "openai"}, reg.Keys())
}

func TestBuild_RejectsUnknownTranslationRule(t *testing.T) {
	_, err := Build(map[string]config.ProviderConfig{
		"x": {BaseURL: "https://x.example.com", AuthHeader: "x-key", Translation: "grpc"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translation rule")
}

func TestCredentialHint(t *testing.T) {
	withPrefix := &Provider{AuthHeader: "Authorization", AuthPrefix: "Bearer "}
	assert.Equal(t, "Authorization: Bearer <credential>", withPrefix.CredentialHint())

	bare := &Provider{AuthHeader: "x-api-key"}
	assert.Equal(t, "x-api-key", bare.CredentialHint())
}

func TestLookup_UnknownReturnsNil(t *testing.T) {
	reg, err := Build(map[string]config.ProviderConfig{
		"openai": {BaseURL: "https://api.openai.com", AuthHeader: "Authorization"},
	})
	require.NoError(t, err)
	assert.Nil(t, reg.Lookup("mistral"))
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes_OverridesDefaults(t *testing.T) {
	t.Setenv("GATEWAY_TOKEN", "")
	t.Setenv("ANTHROPIC_BASE_URL", "")
	data := []byte(`
gateway:
  token: tok-123
  upstream_timeout: 5s
server:
  port: 9100
providers:
  anthropic:
    base_url: https://gw.example.com/v1/acct/llm/anthropic
    auth_header: x-api-key
    version_header: anthropic-version
    version_value: "2023-06-01"
    translation: openai-chat
`)
	cfg, err := LoadFromBytes(data)
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Gateway.Token)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Gateway.UpstreamTimeout.Std())

	p, ok := cfg.Providers["anthropic"]
	require.True(t, ok)
	assert.Equal(t, "https://gw.example.com/v1/acct/llm/anthropic", p.BaseURL)
	assert.Equal(t, "openai-chat", p.Translation)
}

func TestLoadFromBytes_EnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_TOKEN", "env-token")
	t.Setenv("PORT", "9200")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("ANTHROPIC_BASE_URL", "http://localhost:8081")

	cfg, err := LoadFromBytes([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Gateway.Token)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Gateway.UpstreamTimeout.Std())
	assert.Equal(t, "http://localhost:8081", cfg.Providers["anthropic"].BaseURL)
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Token = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway token")
}

func TestValidate_BadProviderURL(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Token = "tok"
	cfg.Providers["broken"] = ProviderConfig{BaseURL: "ftp://nope", AuthHeader: "x-key"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestValidate_MissingAuthHeader(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Token = "tok"
	cfg.Providers["half"] = ProviderConfig{BaseURL: "https://api.example.com"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth_header")
}

func TestValidate_SigV4SkipsAuthHeader(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Token = "tok"
	cfg.Providers["bedrock"] = ProviderConfig{
		BaseURL:     "https://bedrock-runtime.us-east-1.amazonaws.com",
		SigV4:       true,
		SigV4Region: "us-east-1",
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_SigV4RequiresRegion(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Token = "tok"
	cfg.Providers["bedrock"] = ProviderConfig{
		BaseURL: "https://bedrock-runtime.us-east-1.amazonaws.com",
		SigV4:   true,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sigv4_region")
}

func TestDuration_UnmarshalMilliseconds(t *testing.T) {
	t.Setenv("GATEWAY_TOKEN", "tok")
	cfg, err := LoadFromBytes([]byte("gateway:\n  upstream_timeout: 1500\n"))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Gateway.UpstreamTimeout.Std())
}

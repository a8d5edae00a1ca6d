package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/ai-gateway/internal/providers"
)

func TestDispatch_SigV4WithoutSignerFails(t *testing.T) {
	d := newDispatcher(time.Second, nil)
	rt := &route{
		provider:  &providers.Provider{Key: "bedrock", SigV4: true, SigV4Region: "us-east-1"},
		targetURL: "https://bedrock-runtime.us-east-1.amazonaws.com/model/x/invoke",
	}

	resp, cancel, _, err := d.dispatch(context.Background(), rt, "POST", http.Header{}, []byte(`{}`), false)
	require.ErrorIs(t, err, errSigningUnavailable)
	assert.Nil(t, resp)
	assert.Nil(t, cancel)
}

// Package gateway - dispatch.go performs the single upstream attempt.
//
// DESIGN: One inbound request triggers exactly one outbound call — no
// retries anywhere. Three outcomes are distinguished:
//   (a) transport failure          -> error, classified 502
//   (b) deadline exceeded          -> error, classified 504
//   (c) any HTTP response received -> handed to the relay, whatever the
//       status; a 429 from the provider is a response, not a failure.
//
// The deadline covers the full call for buffered requests. For
// stream-flagged requests it covers dial and response headers only
// (ResponseHeaderTimeout on the transport): a healthy event stream may
// legitimately outlive any fixed deadline.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relaypoint/ai-gateway/internal/auth/bedrock"
	"github.com/relaypoint/ai-gateway/internal/config"
)

// errSigningUnavailable marks a SigV4 provider with no usable signer.
var errSigningUnavailable = errors.New("bedrock signing not configured")

type dispatcher struct {
	client  *http.Client
	timeout time.Duration
	signer  *bedrock.Signer
}

func newDispatcher(timeout time.Duration, signer *bedrock.Signer) *dispatcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.DefaultDialTimeout,
		}).DialContext,
		MaxIdleConns:          config.DefaultMaxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &dispatcher{
		client:  &http.Client{Transport: transport},
		timeout: timeout,
		signer:  signer,
	}
}

// dispatch issues the outbound call. The returned cancel func must be
// called once the response is fully relayed; cancelling aborts the call
// and releases the upstream connection, so a timed-out call never leaks
// its socket.
func (d *dispatcher) dispatch(ctx context.Context, rt *route, method string, headers http.Header, body []byte, stream bool) (*http.Response, context.CancelFunc, time.Duration, error) {
	var callCtx context.Context
	var cancel context.CancelFunc
	if stream {
		// No deadline on the stream itself; header phase is bounded by
		// the transport's ResponseHeaderTimeout.
		callCtx, cancel = context.WithCancel(ctx)
	} else {
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
	}

	var reqBody io.Reader = http.NoBody
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, rt.targetURL, reqBody)
	if err != nil {
		cancel()
		return nil, nil, 0, fmt.Errorf("build upstream request: %w", err)
	}
	for k, vals := range headers {
		req.Header[k] = vals
	}

	if rt.provider.SigV4 {
		if !d.signer.IsConfigured() {
			cancel()
			return nil, nil, 0, errSigningUnavailable
		}
		if err := d.signer.SignRequest(callCtx, req, body, rt.provider.SigV4Region); err != nil {
			cancel()
			return nil, nil, 0, err
		}
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		cancel()
		log.Error().Err(err).Str("target", rt.targetURL).Dur("elapsed", elapsed).
			Msg("dispatch: upstream call failed")
		return nil, nil, elapsed, err
	}
	return resp, cancel, elapsed, nil
}

// Package gateway - relay.go writes the upstream response to the client.
//
// DESIGN: State machine per response:
//
//	Idle -> Dispatched -> {Streaming | Buffering} -> Done
//
// Streaming requires all of: the intent was flagged streaming, the
// upstream status is 2xx, and a live body exists. Bytes are piped with a
// fixed-size buffer and flushed per chunk, so backpressure is the
// client's read rate — the relay never buffers unboundedly ahead of a
// slow client. Everything else buffers. Done is terminal: no writes
// afterwards.
package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/relaypoint/ai-gateway/internal/config"
	"github.com/relaypoint/ai-gateway/internal/providers"
)

type relayState int

const (
	relayIdle relayState = iota
	relayDispatched
	relayStreaming
	relayBuffering
	relayDone
)

// relayOutcome summarizes the relay for telemetry.
type relayOutcome struct {
	status       int
	streamed     bool
	translated   bool
	class        errClass // zero value when the response was a plain success
	responseSize int
	responseBody []byte // buffered path only
	inputTokens  int    // streaming path only, parsed from SSE events
	outputTokens int
}

// responseRelay owns the client connection for one response.
type responseRelay struct {
	w     http.ResponseWriter
	state relayState
}

func newResponseRelay(w http.ResponseWriter) *responseRelay {
	return &responseRelay{w: w, state: relayDispatched}
}

// run relays resp according to the inspected intent and returns the
// outcome. resp.Body is always closed before returning.
func (rl *responseRelay) run(resp *http.Response, rt *route, ins inspection, translate bool) relayOutcome {
	defer func() {
		rl.state = relayDone
		_ = resp.Body.Close()
	}()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ins.stream && success && resp.Body != nil {
		rl.state = relayStreaming
		return rl.stream(resp, rt)
	}
	rl.state = relayBuffering
	return rl.buffer(resp, rt, ins, translate)
}

// stream pipes upstream bytes to the client as a chunked event stream.
// The client stream ends exactly when the upstream stream ends or errors;
// an upstream error mid-stream produces no synthetic trailing event.
func (rl *responseRelay) stream(resp *http.Response, rt *route) relayOutcome {
	out := relayOutcome{status: resp.StatusCode, streamed: true}

	copyResponseHeaders(rl.w, resp.Header)
	h := rl.w.Header()
	// The transport already decoded any upstream compression; re-declaring
	// it would corrupt the client's decoder.
	h.Del("Content-Encoding")
	h.Del("Content-Length")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	rl.w.WriteHeader(resp.StatusCode)

	flusher, canFlush := rl.w.(http.Flusher)
	if !canFlush {
		log.Warn().Str("provider", rt.provider.Key).
			Msg("relay: streaming unsupported by writer, copying without flush")
		n, _ := io.Copy(rl.w, resp.Body)
		out.responseSize = int(n)
		return out
	}

	usage := newSSEUsageParser()
	buf := make([]byte, config.DefaultBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			out.responseSize += n
			usage.Feed(buf[:n])
			if _, werr := rl.w.Write(buf[:n]); werr != nil {
				log.Debug().Err(werr).Msg("relay: client disconnected mid-stream")
				out.inputTokens, out.outputTokens = usage.Usage()
				return out
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("relay: upstream stream ended with error")
			}
			out.inputTokens, out.outputTokens = usage.Usage()
			return out
		}
	}
}

// buffer reads the full upstream body and returns exactly one JSON (or
// verbatim) document.
func (rl *responseRelay) buffer(resp *http.Response, rt *route, ins inspection, translate bool) relayOutcome {
	out := relayOutcome{status: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Headers may arrive inside the deadline and the body exceed it;
		// that is still an upstream timeout, not a transport fault.
		out.status, out.class = classifyDispatchError(err)
		msg := "failed to read upstream response"
		if out.class == errClassTimeout {
			msg = "upstream response body timed out"
		}
		writeError(rl.w, out.status, out.class, msg)
		return out
	}
	out.responseBody = body
	out.responseSize = len(body)

	// Non-2xx: normalize into an error envelope, preserve the original
	// upstream status. An error status from the provider is relayed, never
	// swallowed or converted.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out.class = errClassUpstream
		rl.writeUpstreamError(resp.StatusCode, body)
		return out
	}

	// 2xx claiming JSON but unparsable: the proxy cannot vouch for
	// semantics it cannot parse. Checked before translation so a garbled
	// body is a bad gateway regardless of what the client opted into.
	if jsonContentType(resp.Header.Get("Content-Type")) && len(body) > 0 && !gjson.ValidBytes(body) {
		out.status = http.StatusBadGateway
		out.class = errClassUpstream
		writeError(rl.w, out.status, errClassUpstream, "upstream returned unparsable JSON")
		return out
	}

	if translate && rt.provider.Translation == providers.TranslationOpenAIChat &&
		strings.Contains(rt.remainingPath, "/messages") {
		translated, terr := translateAnthropicToOpenAI(body)
		if terr != nil {
			// A parsable-but-malformed body must surface, not silently
			// fall back: the caller asked for a schema we cannot produce.
			log.Error().Err(terr).Str("provider", rt.provider.Key).
				Msg("relay: schema translation failed")
			out.status = http.StatusInternalServerError
			out.class = errClassTranslation
			eb := errorBody{Error: errorDetail{Message: terr.Error(), Type: string(errClassTranslation)}}
			if gjson.ValidBytes(body) {
				eb.Original = json.RawMessage(body)
			}
			writeErrorBody(rl.w, out.status, eb)
			return out
		}
		out.translated = true
		rl.w.Header().Set("Content-Type", "application/json")
		rl.w.WriteHeader(http.StatusOK)
		_, _ = rl.w.Write(translated)
		out.responseBody = translated
		out.responseSize = len(translated)
		return out
	}

	// Success, no rewrite: original bytes, original status.
	copyResponseHeaders(rl.w, resp.Header)
	rl.w.Header().Del("Content-Length")
	rl.w.WriteHeader(resp.StatusCode)
	_, _ = rl.w.Write(body)
	return out
}

// writeUpstreamError wraps a non-2xx upstream body in the error envelope.
// A body that already is a JSON error envelope passes through verbatim.
func (rl *responseRelay) writeUpstreamError(status int, body []byte) {
	w := rl.w
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if gjson.ValidBytes(body) {
		if gjson.GetBytes(body, "error").Exists() {
			_, _ = w.Write(body)
			return
		}
		var wrapped struct {
			Error json.RawMessage `json:"error"`
		}
		wrapped.Error = json.RawMessage(body)
		_ = json.NewEncoder(w).Encode(wrapped)
		return
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Message: msg, Type: string(errClassUpstream)},
	})
}

// copyResponseHeaders copies upstream headers to the client response.
func copyResponseHeaders(w http.ResponseWriter, src http.Header) {
	for k, v := range src {
		w.Header()[k] = v
	}
}

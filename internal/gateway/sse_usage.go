// Package gateway - sse_usage.go extracts token usage from event streams.
//
// Streamed responses never reach the buffered usage extraction, so the
// relay feeds chunks through this incremental parser. Only structured
// "data: {json}" events are read, which avoids false positives from
// arbitrary text containing token-like key names.
package gateway

import (
	"bytes"

	"github.com/tidwall/gjson"
)

type sseUsageParser struct {
	buffer       []byte
	inputTokens  int
	outputTokens int
}

func newSSEUsageParser() *sseUsageParser {
	return &sseUsageParser{buffer: make([]byte, 0, 4096)}
}

// Feed appends a chunk and consumes any complete events.
func (p *sseUsageParser) Feed(chunk []byte) {
	p.buffer = append(p.buffer, chunk...)
	p.parse(false)
}

// Usage flushes any trailing partial event and returns the totals.
func (p *sseUsageParser) Usage() (input, output int) {
	p.parse(true)
	return p.inputTokens, p.outputTokens
}

func (p *sseUsageParser) parse(flush bool) {
	for {
		event, rest, ok := nextSSEEvent(p.buffer, flush)
		if !ok {
			return
		}
		p.buffer = rest
		p.parseEvent(event)
	}
}

func nextSSEEvent(buf []byte, flush bool) ([]byte, []byte, bool) {
	if idx := bytes.Index(buf, []byte("\r\n\r\n")); idx >= 0 {
		return buf[:idx], buf[idx+4:], true
	}
	if idx := bytes.Index(buf, []byte("\n\n")); idx >= 0 {
		return buf[:idx], buf[idx+2:], true
	}
	if flush {
		trimmed := bytes.TrimSpace(buf)
		if len(trimmed) > 0 {
			return trimmed, nil, true
		}
	}
	return nil, nil, false
}

func (p *sseUsageParser) parseEvent(event []byte) {
	for _, line := range bytes.Split(event, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(payload) == 0 || bytes.Equal(payload, []byte("[DONE]")) {
			continue
		}
		if !gjson.ValidBytes(payload) {
			continue
		}
		// Anthropic nests usage under message on message_start and at the
		// top level on message_delta; OpenAI uses prompt/completion names.
		for _, path := range []string{"message.usage", "usage"} {
			u := gjson.GetBytes(payload, path)
			if !u.Exists() {
				continue
			}
			p.apply(u)
		}
	}
}

func (p *sseUsageParser) apply(u gjson.Result) {
	if v := int(u.Get("input_tokens").Int()); v > 0 {
		p.inputTokens = v
	} else if v := int(u.Get("prompt_tokens").Int()); v > 0 {
		p.inputTokens = v
	}
	// Output counts are cumulative in Anthropic deltas; keep the maximum.
	if v := int(u.Get("output_tokens").Int()); v > p.outputTokens {
		p.outputTokens = v
	} else if v := int(u.Get("completion_tokens").Int()); v > p.outputTokens {
		p.outputTokens = v
	}
}

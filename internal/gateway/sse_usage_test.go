package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSEUsageParser_AnthropicStream(t *testing.T) {
	p := newSSEUsageParser()

	p.Feed([]byte("event: message_start\n" +
		`data: {"type":"message_start","message":{"id":"msg_1","usage":{"input_tokens":25,"output_tokens":1}}}` +
		"\n\n"))
	p.Feed([]byte("event: message_delta\n" +
		`data: {"type":"message_delta","usage":{"output_tokens":14}}` +
		"\n\n"))
	p.Feed([]byte("event: message_delta\n" +
		`data: {"type":"message_delta","usage":{"output_tokens":42}}` +
		"\n\n"))

	input, output := p.Usage()
	assert.Equal(t, 25, input)
	assert.Equal(t, 42, output)
}

func TestSSEUsageParser_OpenAIFieldNames(t *testing.T) {
	p := newSSEUsageParser()

	p.Feed([]byte(`data: {"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":3}}` + "\n\n"))
	p.Feed([]byte("data: [DONE]\n\n"))

	input, output := p.Usage()
	assert.Equal(t, 10, input)
	assert.Equal(t, 3, output)
}

func TestSSEUsageParser_EventSplitAcrossChunks(t *testing.T) {
	p := newSSEUsageParser()

	// The delimiter arrives in a later chunk than the data line.
	p.Feed([]byte(`data: {"usage":{"input_tokens":`))
	p.Feed([]byte(`5,"output_tokens":2}}`))
	p.Feed([]byte("\n\n"))

	input, output := p.Usage()
	assert.Equal(t, 5, input)
	assert.Equal(t, 2, output)
}

func TestSSEUsageParser_CRLFDelimiters(t *testing.T) {
	p := newSSEUsageParser()

	p.Feed([]byte(`data: {"usage":{"input_tokens":7,"output_tokens":4}}` + "\r\n\r\n"))

	input, output := p.Usage()
	assert.Equal(t, 7, input)
	assert.Equal(t, 4, output)
}

func TestSSEUsageParser_TrailingEventWithoutDelimiter(t *testing.T) {
	p := newSSEUsageParser()

	// Stream ended without a final blank line; Usage flushes the tail.
	p.Feed([]byte(`data: {"usage":{"input_tokens":3,"output_tokens":1}}`))

	input, output := p.Usage()
	assert.Equal(t, 3, input)
	assert.Equal(t, 1, output)
}

func TestSSEUsageParser_IgnoresNonUsagePayloads(t *testing.T) {
	p := newSSEUsageParser()

	p.Feed([]byte(`data: {"type":"content_block_delta","delta":{"text":"input_tokens everywhere"}}` + "\n\n"))
	p.Feed([]byte("data: not json at all\n\n"))
	p.Feed([]byte(": comment line\n\n"))

	input, output := p.Usage()
	assert.Zero(t, input)
	assert.Zero(t, output)
}

// Package gateway - translate.go converts response envelopes between
// provider schemas.
//
// One rule exists today: Anthropic messages -> OpenAI chat.completion.
// It is a pure, stateless function on a well-formed input; clients opt in
// per request with the X-Translate-Response header.
package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/relaypoint/ai-gateway/internal/utils"
)

// HeaderTranslate requests response-schema translation. The only
// supported value is "openai".
const HeaderTranslate = "X-Translate-Response"

// translationClock is swapped in tests to pin the created timestamp.
var translationClock = time.Now

// openAIChatCompletion is the translated envelope.
type openAIChatCompletion struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Created int64           `json:"created"`
	Model   string          `json:"model"`
	Choices []openAIChoice  `json:"choices"`
	Usage   json.RawMessage `json:"usage,omitempty"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// translateAnthropicToOpenAI maps {id, model, content[0].text, stop_reason,
// usage} onto an OpenAI chat.completion. The usage block passes through
// untouched. An input missing content[0] cannot be translated and errors
// instead of silently falling back.
func translateAnthropicToOpenAI(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("translate: response is not valid JSON")
	}
	content := gjson.GetBytes(body, "content.0")
	if !content.Exists() {
		return nil, fmt.Errorf("translate: response has no content[0]")
	}

	out := openAIChatCompletion{
		ID:      gjson.GetBytes(body, "id").String(),
		Object:  "chat.completion",
		Created: translationClock().Unix(),
		Model:   gjson.GetBytes(body, "model").String(),
		Choices: []openAIChoice{{
			Index: 0,
			Message: openAIMessage{
				Role:    "assistant",
				Content: content.Get("text").String(),
			},
			FinishReason: gjson.GetBytes(body, "stop_reason").String(),
		}},
	}
	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		out.Usage = json.RawMessage(usage.Raw)
	}

	// No HTML escaping: the envelope must carry the model text exactly as
	// the provider produced it.
	return utils.MarshalNoEscape(out)
}

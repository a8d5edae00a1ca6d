// Package monitoring - tokens.go estimates token counts for telemetry.
//
// Providers report exact usage on most responses; the estimator only
// covers the gap (errored bodies, providers without a usage block).
package monitoring

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

const estimateEncoding = "cl100k_base"

// fallbackRatio approximates characters per token when the tokenizer is
// unavailable (offline start, first-use download failure).
const fallbackRatio = 4

// TokenEstimator counts tokens with tiktoken, falling back to a size
// heuristic. Safe for concurrent use.
type TokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenEstimator creates an estimator; the encoding is loaded lazily
// on first use so startup never blocks on it.
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{}
}

// Estimate returns the approximate token count of text.
func (e *TokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(estimateEncoding)
		if err != nil {
			log.Debug().Err(err).Msg("tokens: encoding unavailable, using size heuristic")
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return len(text) / fallbackRatio
	}
	return len(e.enc.Encode(text, nil, nil))
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageStore_RecordAndSummary(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, UsageRecord{
		RequestID: "r1", Timestamp: time.Now(), Provider: "anthropic",
		Model: "claude-3-haiku", StatusCode: 200, InputTokens: 12, OutputTokens: 40,
		Latency: 250 * time.Millisecond,
	}))
	require.NoError(t, s.Record(ctx, UsageRecord{
		RequestID: "r2", Timestamp: time.Now(), Provider: "anthropic",
		Model: "claude-3-haiku", StatusCode: 200, Stream: true, InputTokens: 8, OutputTokens: 30,
	}))
	require.NoError(t, s.Record(ctx, UsageRecord{
		RequestID: "r3", Timestamp: time.Now(), Provider: "openai",
		Model: "gpt-4o-mini", StatusCode: 429,
	}))

	summary, err := s.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, "anthropic", summary[0].Provider)
	assert.Equal(t, int64(2), summary[0].Requests)
	assert.Equal(t, int64(20), summary[0].InputTokens)
	assert.Equal(t, int64(70), summary[0].OutputTokens)

	assert.Equal(t, "openai", summary[1].Provider)
	assert.Equal(t, int64(1), summary[1].Requests)
}

func TestUsageStore_EmptySummary(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	defer s.Close()

	summary, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary)
}

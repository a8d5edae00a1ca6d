// Package store persists per-request usage rows in sqlite.
//
// The store backs the /stats endpoint across restarts; the hot path
// writes one row per completed request and never reads.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS request_usage (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id    TEXT NOT NULL,
	ts            INTEGER NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	status_code   INTEGER NOT NULL,
	stream        INTEGER NOT NULL DEFAULT 0,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_request_usage_provider ON request_usage(provider);
`

// UsageRecord is one completed request.
type UsageRecord struct {
	RequestID    string
	Timestamp    time.Time
	Provider     string
	Model        string
	StatusCode   int
	Stream       bool
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// ProviderUsage is the aggregate for one provider.
type ProviderUsage struct {
	Provider     string `json:"provider"`
	Requests     int64  `json:"requests"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// UsageStore records request usage in sqlite.
type UsageStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the usage database at path.
func Open(path string) (*UsageStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("usage store: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage store: open %s: %w", path, err)
	}
	// The store is written from many request goroutines; a single
	// connection serializes writes and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("usage store: init schema: %w", err)
	}
	return &UsageStore{db: db}, nil
}

// Record inserts one usage row.
func (s *UsageStore) Record(ctx context.Context, rec UsageRecord) error {
	stream := 0
	if rec.Stream {
		stream = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_usage
		 (request_id, ts, provider, model, status_code, stream, input_tokens, output_tokens, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Timestamp.UnixMilli(), rec.Provider, rec.Model,
		rec.StatusCode, stream, rec.InputTokens, rec.OutputTokens, rec.Latency.Milliseconds())
	if err != nil {
		return fmt.Errorf("usage store: insert: %w", err)
	}
	return nil
}

// Summary aggregates usage per provider, ordered by provider key.
func (s *UsageStore) Summary(ctx context.Context) ([]ProviderUsage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		 FROM request_usage GROUP BY provider ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("usage store: summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ProviderUsage
	for rows.Next() {
		var u ProviderUsage
		if err := rows.Scan(&u.Provider, &u.Requests, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("usage store: scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *UsageStore) Close() error {
	return s.db.Close()
}

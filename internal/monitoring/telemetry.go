// Package monitoring - telemetry.go records events to JSONL files.
//
// DESIGN: Tracker writes structured events as JSONL (one JSON object per
// line): a RequestEvent for every request through the proxy and a single
// InitEvent at startup. Events are appended immediately so the log tails
// in real time.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker handles telemetry event recording to file.
type Tracker struct {
	config      TelemetryConfig
	requestPath string
	initPath    string
	mu          sync.Mutex
}

// NewTracker creates a telemetry tracker. With telemetry disabled all
// record calls are no-ops, so callers never need to nil-check.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{config: cfg}
	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	t.requestPath = cfg.LogPath
	t.initPath = filepath.Join(filepath.Dir(cfg.LogPath), "init.jsonl")
	return t, nil
}

// RecordRequest appends a request event.
func (t *Tracker) RecordRequest(ev *RequestEvent) {
	t.appendJSONL(t.requestPath, ev)
}

// RecordInit appends the startup event.
func (t *Tracker) RecordInit(ev *InitEvent) {
	t.appendJSONL(t.initPath, ev)
}

func (t *Tracker) appendJSONL(path string, v any) {
	if path == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Msg("telemetry: marshal event")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("telemetry: open log")
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.Write(append(data, '\n'))
}

// Package testutil holds test helpers shared across packages. Nothing in
// here ships in a production binary.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// Record is one captured log entry.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler is an slog.Handler that records every entry for later
// inspection. All levels are captured regardless of configuration.
type CaptureHandler struct {
	mu      sync.Mutex
	attrs   []slog.Attr
	records *[]Record
	recMu   *sync.Mutex
}

// NewLogger returns a logger whose output is captured by the returned
// handler.
func NewLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	t.Helper()
	h := &CaptureHandler{
		records: &[]Record{},
		recMu:   &sync.Mutex{},
	}
	return slog.New(h), h
}

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.recMu.Lock()
	defer h.recMu.Unlock()
	*h.records = append(*h.records, Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler.
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

// WithAttrs implements slog.Handler. Derived handlers share the parent's
// record buffer so a single handler observes the whole logger tree.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &CaptureHandler{
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
		records: h.records,
		recMu:   h.recMu,
	}
}

// WithGroup implements slog.Handler. Groups are flattened; tests match on
// leaf attribute keys.
func (h *CaptureHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything captured so far.
func (h *CaptureHandler) Records() []Record {
	h.recMu.Lock()
	defer h.recMu.Unlock()
	out := make([]Record, len(*h.records))
	copy(out, *h.records)
	return out
}

// HasMessage reports whether any captured entry at the given level contains
// the message substring.
func (h *CaptureHandler) HasMessage(level slog.Level, message string) bool {
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// HasAttr reports whether any captured entry carries the attribute.
func (h *CaptureHandler) HasAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

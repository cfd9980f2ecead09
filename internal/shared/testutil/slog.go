// Package testutil provides shared test helpers, chiefly a buffering slog
// handler so tests can assert on what a component logged.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log record.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// BufferedSlogHandler captures log records for assertions.
type BufferedSlogHandler struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// NewTestLogger creates a logger backed by a buffered handler. Records are
// also echoed to the test log for debugging.
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	h := &BufferedSlogHandler{t: t}
	// Logging to t after the test has completed panics; stop echoing once
	// the test is done so late goroutine logs are only buffered.
	t.Cleanup(func() {
		h.mu.Lock()
		h.t = nil
		h.mu.Unlock()
	})
	return slog.New(h), h
}

// Handle implements slog.Handler.
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.records = append(h.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	t := h.t
	h.mu.Unlock()

	if t != nil {
		t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// Enabled implements slog.Handler; tests capture every level.
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool { return true }

// WithAttrs implements slog.Handler.
func (h *BufferedSlogHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

// WithGroup implements slog.Handler.
func (h *BufferedSlogHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of all captured records.
func (h *BufferedSlogHandler) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogRecord, len(h.records))
	copy(out, h.records)
	return out
}

// ContainsMessage reports whether any record's message contains the given
// substring.
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

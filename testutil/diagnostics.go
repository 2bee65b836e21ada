package testutil

import (
	"context"
	"log/slog"
	"sync"

	"logpipe/diagnostics"
)

// DiagnosticsRecorder captures every diagnostic event emitted through a
// diagnostics.Stream by handing it a slog.Logger backed by a custom
// slog.Handler instead of a channel; diagnostics.Stream.Emit already
// never blocks, so recording synchronously into a guarded slice is
// sufficient without needing a separate drain goroutine.
type DiagnosticsRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewDiagnosticsRecorder returns a recorder and a ready-to-use
// diagnostics.Stream wired to it with rate limiting disabled, so tests
// see every emitted event regardless of burst.
func NewDiagnosticsRecorder() (*DiagnosticsRecorder, *diagnostics.Stream) {
	rec := &DiagnosticsRecorder{}
	logger := slog.New(rec)
	return rec, diagnostics.New(logger, 0, 0)
}

// Enabled implements slog.Handler.
func (r *DiagnosticsRecorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler, recording the record for later inspection.
func (r *DiagnosticsRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// WithAttrs implements slog.Handler; attrs are discarded since no test
// so far needs to assert on logger-level attributes.
func (r *DiagnosticsRecorder) WithAttrs(attrs []slog.Attr) slog.Handler { return r }

// WithGroup implements slog.Handler.
func (r *DiagnosticsRecorder) WithGroup(name string) slog.Handler { return r }

// Records returns a snapshot of every diagnostic record captured so far.
func (r *DiagnosticsRecorder) Records() []slog.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]slog.Record, len(r.records))
	copy(out, r.records)
	return out
}

// Count returns the number of diagnostic records captured so far.
func (r *DiagnosticsRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

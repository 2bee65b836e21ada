// Package envelope defines the canonical structured log event record
// (schema v1.1) and the builder that assembles one from a logger call site.
package envelope

import (
	"time"

	"logpipe/level"
)

// SchemaVersion is the fixed schema version stamped onto every event.
const SchemaVersion = "1.1"

// Origin identifies whether an event originated from logpipe's native API
// or was bridged in from the standard library's log/slog.
type Origin string

const (
	OriginNative       Origin = "native"
	OriginStdlibBridge Origin = "stdlib-bridge"
)

// Event is the immutable canonical event record. Once built it is only ever
// read, deep-copied (the redaction invariant), or serialized; stages must
// not mutate an Event's maps in place, they must copy-on-write.
type Event struct {
	SchemaVersion string
	MessageID     string
	Timestamp     time.Time
	Level         level.Level
	Message       string
	LoggerName    string
	Origin        Origin

	Context     Map
	Diagnostics Map
	Data        Map
}

// Clone returns a deep copy of the event, safe for a stage to mutate.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Context = e.Context.Clone()
	clone.Diagnostics = e.Diagnostics.Clone()
	clone.Data = e.Data.Clone()
	return &clone
}

// CorrelationID returns the context's correlation_id, or "" if unset/null.
func (e *Event) CorrelationID() string {
	if e == nil || e.Context == nil {
		return ""
	}
	if v, ok := e.Context["correlation_id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ProtectedFunc reports whether the named level is in the protected set.
// Callers typically derive this once at build time and carry it alongside
// the event, since the registry lookup itself is cheap but the event
// doesn't retain a registry reference (no cyclic ownership, per design
// notes on weak references).
type ProtectedFunc func(levelName string) bool

package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireEvent mirrors Event with stable field ordering and JSON tags for the
// canonical wire format. Field order here is what encoding/json
// emits for a struct, which is declaration order; the stability contract
// for signable/audit output.
type wireEvent struct {
	SchemaVersion string `json:"schema_version"`
	MessageID     string `json:"message_id"`
	Timestamp     string `json:"timestamp"`
	Level         string `json:"level"`
	LevelPriority int    `json:"level_priority"`
	Message       string `json:"message"`
	LoggerName    string `json:"logger_name"`
	Origin        string `json:"origin"`
	Context       Map    `json:"context"`
	Diagnostics   Map    `json:"diagnostics,omitempty"`
	Data          Map    `json:"data,omitempty"`
}

// Serialize produces the canonical compact JSON wire representation of an
// event. Output uses a stable key order per struct (not map randomization)
// for the top-level fields; nested maps serialize via encoding/json's
// sorted-key behavior for map[string]any.
func Serialize(e *Event) ([]byte, error) {
	w := wireEvent{
		SchemaVersion: e.SchemaVersion,
		MessageID:     e.MessageID,
		Timestamp:     e.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Level:         e.Level.Name(),
		LevelPriority: e.Level.Priority(),
		Message:       e.Message,
		LoggerName:    e.LoggerName,
		Origin:        string(e.Origin),
		Context:       e.Context,
		Diagnostics:   e.Diagnostics,
		Data:          e.Data,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("envelope: serialize: %w", err)
	}
	out := buf.Bytes()
	// json.Encoder.Encode appends a trailing newline; strip it so callers
	// control line framing themselves.
	return bytes.TrimSuffix(out, []byte("\n")), nil
}

// Parse reconstructs the wire-visible fields of an event from its
// serialized bytes. Used by the round-trip property test; it does not
// reconstruct the level.Level registry entry, only name and priority.
func Parse(data []byte) (*wireEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("envelope: parse: %w", err)
	}
	return &w, nil
}

package pipeline

import (
	"logpipe/envelope"
)

const truncateMarker = "...[truncated]"

// StringTruncateRedactor truncates any string value longer than MaxLen,
// appending a marker so downstream consumers can tell the value was cut.
type StringTruncateRedactor struct {
	MaxLen int
}

func NewStringTruncateRedactor(maxLen int) *StringTruncateRedactor {
	if maxLen <= 0 {
		maxLen = 4096
	}
	return &StringTruncateRedactor{MaxLen: maxLen}
}

func (r *StringTruncateRedactor) Name() string { return "string-truncate" }

func (r *StringTruncateRedactor) Redact(e *envelope.Event, guard Guardrails) *envelope.Event {
	working := e.Clone()
	b := newWalkBudget(guard)

	truncate := func(s string) string {
		if len(s) <= r.MaxLen {
			return s
		}
		cut := r.MaxLen
		if cut < 0 {
			cut = 0
		}
		return s[:cut] + truncateMarker
	}

	if !walkStrings(working.Data, b, 1, truncate) {
		return e
	}
	return working
}

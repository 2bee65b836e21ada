package pipeline

import (
	"strings"

	"logpipe/envelope"
)

// FieldBlockerRedactor removes entire field subtrees by key name,
// anywhere in the event tree, case-insensitively.
type FieldBlockerRedactor struct {
	blocked map[string]bool
}

func NewFieldBlockerRedactor(keys []string) *FieldBlockerRedactor {
	blocked := make(map[string]bool, len(keys))
	for _, k := range keys {
		blocked[strings.ToLower(k)] = true
	}
	return &FieldBlockerRedactor{blocked: blocked}
}

func (r *FieldBlockerRedactor) Name() string { return "field-blocker" }

func (r *FieldBlockerRedactor) Redact(e *envelope.Event, guard Guardrails) *envelope.Event {
	if len(r.blocked) == 0 {
		return e
	}
	working := e.Clone()
	b := newWalkBudget(guard)

	if !walkBlockKeys(working.Data, b, 1, r.blocked) {
		return e
	}
	if !walkBlockKeys(working.Context, b, 1, r.blocked) {
		return e
	}
	if !walkBlockKeys(working.Diagnostics, b, 1, r.blocked) {
		return e
	}
	return working
}

package pipeline

import (
	"strings"

	"logpipe/envelope"
)

// FieldMaskRedactor masks values at exact dotted paths within the
// event's Data tree. A bare name (no dot) is auto-prefixed with
// "data." unless AutoPrefix is set to a different root.
type FieldMaskRedactor struct {
	Paths      []string
	AutoPrefix string
}

func NewFieldMaskRedactor(paths []string) *FieldMaskRedactor {
	return &FieldMaskRedactor{Paths: paths, AutoPrefix: "data"}
}

func (r *FieldMaskRedactor) Name() string { return "field-mask" }

func (r *FieldMaskRedactor) Redact(e *envelope.Event, guard Guardrails) *envelope.Event {
	if len(r.Paths) == 0 {
		return e
	}
	working := e.Clone()

	full := make(map[string]bool, len(r.Paths))
	for _, p := range r.Paths {
		if !strings.Contains(p, ".") && r.AutoPrefix != "" {
			p = r.AutoPrefix + "." + p
		}
		full[p] = true
	}

	b := newWalkBudget(guard)
	match := func(path string) bool { return full[path] }
	if !walkMaskByPath(working.Data, b, 1, "data", match) {
		return e
	}
	return working
}

package pipeline

import (
	"logpipe/envelope"
)

// VarsFunc returns the current snapshot of ambient variables to attach,
// e.g. deployment environment, region, build version; values sourced
// once at process start rather than per call-site.
type VarsFunc func() envelope.Map

// ContextVarsEnricher merges a static-ish set of process-wide variables
// into every event's diagnostics tree, under "vars". Unlike context propagation (which
// tracks per-request correlation IDs from context.Context), this
// enricher exists for values that rarely change within a process
// lifetime.
type ContextVarsEnricher struct {
	Vars VarsFunc
}

func NewContextVarsEnricher(vars VarsFunc) *ContextVarsEnricher {
	if vars == nil {
		vars = func() envelope.Map { return nil }
	}
	return &ContextVarsEnricher{Vars: vars}
}

func (c *ContextVarsEnricher) Name() string { return "context-vars" }

func (c *ContextVarsEnricher) Enrich(e *envelope.Event) envelope.Map {
	v := c.Vars()
	if len(v) == 0 {
		return nil
	}
	return envelope.Map{"vars": v}
}

package pipeline

import (
	"logpipe/envelope"
)

// FailMode controls what happens to an event when a redactor stage fails
// after guardrails are exhausted or a panic is recovered.
type FailMode int

const (
	// FailOpen lets the event continue with the best snapshot available
	// (the pre-stage snapshot, per the "never corrupt the last good
	// snapshot" invariant).
	FailOpen FailMode = iota
	// FailClosed drops the event outright.
	FailClosed
)

// Pipeline is the fully assembled set of stages applied to one event.
type Pipeline struct {
	Filters    []Filter
	Enrichers  []Enricher
	Redactors  []Redactor
	Processors []Processor

	Guardrails     Guardrails
	RedactionMode  FailMode
	StrictEnvelope bool
	Diagnostic     DiagnosticFunc
}

// New returns an empty Pipeline with defaults: open-fail redaction,
// non-strict envelope, default guardrails.
func New() *Pipeline {
	return &Pipeline{
		Guardrails:    DefaultGuardrails(),
		RedactionMode: FailOpen,
		Diagnostic:    noopDiagnostic,
	}
}

// RunFilters applies every filter in order, pre-enqueue. It returns the
// possibly-mutated event and whether it survives to enqueue.
func (p *Pipeline) RunFilters(e *envelope.Event) (*envelope.Event, bool) {
	for _, f := range p.Filters {
		var ok bool
		e, ok = p.safeFilter(f, e)
		if !ok {
			return nil, false
		}
	}
	return e, true
}

func (p *Pipeline) safeFilter(f Filter, e *envelope.Event) (result *envelope.Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.diag("filter", "panic-recovered", map[string]any{"name": f.Name(), "panic": r})
			result, ok = e, true
		}
	}()
	return f.ShouldEmit(e)
}

// RunEnrichment applies every enricher, deep-merging each partial map
// into the event's Diagnostics tree. A panicking enricher contributes
// nothing and is diagnosed, not fatal.
func (p *Pipeline) RunEnrichment(e *envelope.Event) *envelope.Event {
	for _, en := range p.Enrichers {
		partial := p.safeEnrich(en, e)
		if partial == nil {
			continue
		}
		e.Diagnostics = e.Diagnostics.Merge(partial)
	}
	return e
}

func (p *Pipeline) safeEnrich(en Enricher, e *envelope.Event) (partial envelope.Map) {
	defer func() {
		if r := recover(); r != nil {
			p.diag("enricher", "panic-recovered", map[string]any{"name": en.Name(), "panic": r})
			partial = nil
		}
	}()
	return en.Enrich(e)
}

// RunRedaction applies every redactor in the fixed order (callers are
// expected to have assembled Redactors in field-mask, regex-mask,
// url-credentials, field-blocker, string-truncate order, ).
// It returns the redacted event and whether the event survives (false
// only under FailClosed after an irrecoverable stage failure).
func (p *Pipeline) RunRedaction(e *envelope.Event) (*envelope.Event, bool) {
	lastGood := e
	for _, r := range p.Redactors {
		next, failed := p.safeRedact(r, lastGood)
		if failed {
			p.diag("redactor", "stage-failed", map[string]any{"name": r.Name()})
			if p.RedactionMode == FailClosed {
				return nil, false
			}
			continue // lastGood unchanged: never corrupted by a failed stage
		}
		lastGood = next
	}
	return lastGood, true
}

func (p *Pipeline) safeRedact(r Redactor, e *envelope.Event) (result *envelope.Event, failed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			p.diag("redactor", "panic-recovered", map[string]any{"name": r.Name(), "panic": rec})
			result, failed = e, true
		}
	}()
	out := r.Redact(e, p.Guardrails)
	if out == nil {
		return e, true
	}
	return out, false
}

// RunProcessors applies every processor in order.
func (p *Pipeline) RunProcessors(e *envelope.Event) *envelope.Event {
	for _, pr := range p.Processors {
		e = p.safeProcess(pr, e)
	}
	return e
}

func (p *Pipeline) safeProcess(pr Processor, e *envelope.Event) (result *envelope.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.diag("processor", "panic-recovered", map[string]any{"name": pr.Name(), "panic": r})
			result = e
		}
	}()
	out := pr.Process(e)
	if out == nil {
		return e
	}
	return out
}

func (p *Pipeline) diag(component, reason string, fields map[string]any) {
	if p.Diagnostic != nil {
		p.Diagnostic(component, reason, fields)
	}
}

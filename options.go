package logpipe

import (
	"logpipe/diagnostics"
	"logpipe/level"
	"logpipe/pipeline"
	"logpipe/sink"
)

type options struct {
	registry      *level.Registry
	diagnostic    *diagnostics.Stream
	metrics       MetricRecorder
	filters       []pipeline.Filter
	enrichers     []pipeline.Enricher
	redactors     []pipeline.Redactor
	processors    []pipeline.Processor
	sinks         []sink.Sink
	routes        []sink.Route
	fallback      sink.Sink
	adaptiveBatch bool
}

func defaultOptions() *options {
	return &options{}
}

// Option configures a Logger at construction time.
type Option func(*options)

// WithRegistry supplies a pre-built level registry, e.g. one shared
// across multiple named loggers or pre-populated with custom levels
// registered before freeze.
func WithRegistry(r *level.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithDiagnostics routes internal recoverable failures through stream
// instead of the disabled default.
func WithDiagnostics(stream *diagnostics.Stream) Option {
	return func(o *options) { o.diagnostic = stream }
}

// WithMetrics wires a MetricRecorder. A nil recorder (the default) makes
// every metric call a no-op.
func WithMetrics(m MetricRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithFilters appends pre-enqueue filters, run in the given order.
func WithFilters(filters ...pipeline.Filter) Option {
	return func(o *options) { o.filters = append(o.filters, filters...) }
}

// WithEnrichers appends enrichment stages, run in the given order.
func WithEnrichers(enrichers ...pipeline.Enricher) Option {
	return func(o *options) { o.enrichers = append(o.enrichers, enrichers...) }
}

// WithRedactors appends redaction stages. Callers are responsible for
// ordering them (field-mask, regex-mask, url-credentials,
// field-blocker, string-truncate).
func WithRedactors(redactors ...pipeline.Redactor) Option {
	return func(o *options) { o.redactors = append(o.redactors, redactors...) }
}

// WithProcessors appends post-redaction processors, run in the given order.
func WithProcessors(processors ...pipeline.Processor) Option {
	return func(o *options) { o.processors = append(o.processors, processors...) }
}

// WithSinks registers the output sinks events are fanned out to.
func WithSinks(sinks ...sink.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sinks...) }
}

// WithRoutes installs level-to-sink routing rules, evaluated in order.
// Without routes every sink receives every event.
func WithRoutes(routes ...sink.Route) Option {
	return func(o *options) { o.routes = append(o.routes, routes...) }
}

// WithFallback overrides the built-in stderr fallback sink.
func WithFallback(s sink.Sink) Option {
	return func(o *options) { o.fallback = s }
}

// WithAdaptiveBatchSizing opts into the worker pool's EWMA-driven
// batch-size controller, on top of the pressure-driven
// batch-sizing actuator.
func WithAdaptiveBatchSizing() Option {
	return func(o *options) { o.adaptiveBatch = true }
}

package contextprop

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ProviderConfig configures the optional in-process tracer provider
// logpipe can stand up for callers that don't already run their own
// OpenTelemetry SDK. When a host application already calls
// otel.SetTracerProvider itself, logpipe should not construct one of
// its own - Extract works against whatever provider is globally
// registered.
type ProviderConfig struct {
	ServiceName string
	SampleRate  float64
}

// Provider wraps a minimal in-process TracerProvider. Shutdown flushes
// and releases it.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds and globally installs a TracerProvider with the
// given sampling rate. It does not configure an exporter: logpipe's
// scope is extracting IDs from an already-active span, not running a
// tracing backend: callers that want traces shipped somewhere configure
// their own exporter and call otel.SetTracerProvider before this, in
// which case NewProvider should not be called at all.
func NewProvider(cfg ProviderConfig) *Provider {
	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(tp)

	name := cfg.ServiceName
	if name == "" {
		name = "logpipe"
	}

	return &Provider{tp: tp, tracer: tp.Tracer(name)}
}

// Tracer returns the provider's tracer, for callers that want to start
// spans directly rather than rely on an externally-provided one.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes and releases the tracer provider's resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

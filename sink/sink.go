// Package sink defines the sink contract and the writer group that fans
// events out to configured sinks with routing, per-sink circuit
// breakers, and stderr fallback.
package sink

import (
	"context"

	"logpipe/envelope"
	"logpipe/level"
)

// Sink is the contract every output target implements. Start/Stop bound
// its lifecycle; Write delivers one event. A sink must not block
// indefinitely; long I/O should be bounded by ctx.
type Sink interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Write(ctx context.Context, e *envelope.Event) (bool, error)
}

// SerializedWriter is an optional capability: a sink that can accept the
// already-serialized bytes for an event, avoiding re-serialization per
// sink when multiple sinks would otherwise re-encode the same event.
type SerializedWriter interface {
	WriteSerialized(ctx context.Context, e *envelope.Event, data []byte) (bool, error)
}

// HealthChecker is an optional capability for sinks that can report
// their own health independent of the breaker's view.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Route maps a set of levels to the sink names that should receive
// matching events. Rules are evaluated in order; the first match wins.
type Route struct {
	Levels map[string]bool
	Sinks  []string
}

func (r Route) matches(lvl level.Level) bool {
	if len(r.Levels) == 0 {
		return true
	}
	return r.Levels[lvl.Name()]
}

package envelope

import (
	"time"

	"github.com/google/uuid"

	"logpipe/level"
)

// Clock returns the current time; overridable for deterministic tests.
type Clock func() time.Time

// IDFunc returns a fresh unique message ID; overridable for deterministic
// tests.
type IDFunc func() string

// Builder assembles canonical Events for a single logger instance. It is
// cheap to construct and safe for concurrent use; it holds no mutable
// state beyond its configuration.
type Builder struct {
	LoggerName string
	Origin     Origin
	Clock      Clock
	NewID      IDFunc
}

// NewBuilder returns a Builder using time.Now and uuid.NewString as defaults.
func NewBuilder(loggerName string, origin Origin) *Builder {
	return &Builder{
		LoggerName: loggerName,
		Origin:     origin,
		Clock:      time.Now,
		NewID:      uuid.NewString,
	}
}

// Build assembles an Event. context is the merged bound+call context map
// (correlation_id already resolved, may be explicitly nil to record null).
// data is the merged bound+kwargs+flattened-data map. sensitive, if
// non-nil, is placed at data["sensitive"] with every leaf value masked
// in place before the event is returned; callers must not have already
// exposed sensitive to any sink.
func (b *Builder) Build(lvl level.Level, message string, context, data, sensitive Map) *Event {
	ctx := context.Clone()
	if ctx == nil {
		ctx = Map{}
	}
	if _, ok := ctx["correlation_id"]; !ok {
		ctx["correlation_id"] = nil
	}

	d := data.Clone()
	if d == nil {
		d = Map{}
	}
	if sensitive != nil {
		d["sensitive"] = maskRecursive(sensitive.Clone())
	}

	return &Event{
		SchemaVersion: SchemaVersion,
		MessageID:     b.NewID(),
		Timestamp:     b.Clock().UTC(),
		Level:         lvl,
		Message:       message,
		LoggerName:    b.LoggerName,
		Origin:        b.Origin,
		Context:       ctx,
		Diagnostics:   Map{},
		Data:          d,
	}
}

const maskedValue = "***"

// maskRecursive replaces every leaf scalar with a fixed mask token while
// preserving map/list structure, so a masked sensitive container still
// round-trips through serialization with the same shape.
func maskRecursive(v Value) Value {
	switch t := v.(type) {
	case Map:
		out := make(Map, len(t))
		for k, vv := range t {
			out[k] = maskRecursive(vv)
		}
		return out
	case map[string]Value:
		return maskRecursive(Map(t))
	case []Value:
		out := make([]Value, len(t))
		for i, vv := range t {
			out[i] = maskRecursive(vv)
		}
		return out
	case nil:
		return nil
	default:
		return maskedValue
	}
}

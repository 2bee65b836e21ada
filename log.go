package logpipe

import (
	"context"
	"math/rand/v2"
	"sync"

	"logpipe/contextprop"
	"logpipe/envelope"
	"logpipe/level"
	"logpipe/queue"
)

// Log runs the full build sequence for one event: the
// level-filter fast path, the sampling fast path, the error-dedup fast
// path, envelope construction, and enqueue. Protected levels bypass the
// level, sampling, and dedup fast paths entirely; they are always
// built and always attempted for enqueue (subject only to the
// backpressure policy, which itself special-cases protected events by
// evicting a standard-lane victim rather than dropping them).
func (l *Logger) Log(lvl level.Level, message string, data map[string]any) {
	l.LogSensitive(lvl, message, data, nil)
}

// LogSensitive is Log plus a sensitive field map that is masked in place
// before the event is ever visible to a stage or sink.
func (l *Logger) LogSensitive(lvl level.Level, message string, data, sensitive map[string]any) {
	l.ensureStarted()

	protected := l.registry.IsProtected(lvl.Name())

	if !protected {
		snap := l.filterHolder.Load()
		if lvl.Priority() < snap.MinLevel.Priority() {
			return
		}
		if snap.SampleRatio < 1.0 && l.sampleReject(snap.SampleRatio) {
			l.recordDropped("sampled")
			return
		}
		if lvl.Priority() >= level.Error.Priority() && !l.dedup.admit(lvl.Name(), message) {
			l.recordDropped("deduplicated")
			return
		}
	}

	l.mu.RLock()
	ctxMap := l.boundContext.Clone()
	dataMap := l.boundData.Clone()
	l.mu.RUnlock()

	dataMap = dataMap.Merge(toEnvelopeMap(data))

	event := l.builder.Build(lvl, message, ctxMap, dataMap, toEnvelopeMap(sensitive))

	filtered, ok := l.pipe.RunFilters(event)
	if !ok {
		l.recordDropped("filtered")
		return
	}

	if l.metrics != nil {
		l.metrics.IncSubmitted(lvl.Name())
	}

	l.enqueue(queue.Item{Event: filtered, Protected: protected})
}

func (l *Logger) sampleReject(ratio float64) bool {
	return l.sample() >= ratio
}

func (l *Logger) sample() float64 {
	l.rt.samplerMu.Lock()
	defer l.rt.samplerMu.Unlock()
	return l.rt.sampler.Float64()
}

func toEnvelopeMap(m map[string]any) envelope.Map {
	if m == nil {
		return nil
	}
	out := make(envelope.Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Level convenience wrappers, one per named level.
func (l *Logger) Trace(message string, data map[string]any)    { l.Log(level.Trace, message, data) }
func (l *Logger) Debug(message string, data map[string]any)    { l.Log(level.Debug, message, data) }
func (l *Logger) Info(message string, data map[string]any)     { l.Log(level.Info, message, data) }
func (l *Logger) Warning(message string, data map[string]any)  { l.Log(level.Warning, message, data) }
func (l *Logger) Error(message string, data map[string]any)    { l.Log(level.Error, message, data) }
func (l *Logger) Critical(message string, data map[string]any) { l.Log(level.Critical, message, data) }
func (l *Logger) Audit(message string, data map[string]any)    { l.Log(level.Audit, message, data) }
func (l *Logger) Security(message string, data map[string]any) { l.Log(level.Security, message, data) }

// Bind returns a derived Logger with fields merged permanently into its
// bound data map, inherited by every subsequent call on the derived
// instance. The receiver is unmodified.
func (l *Logger) Bind(fields map[string]any) *Logger {
	derived := l.shallowCopy()
	l.mu.RLock()
	merged := l.boundData.Merge(toEnvelopeMap(fields))
	l.mu.RUnlock()
	derived.boundData = merged
	return derived
}

// Unbind returns a derived Logger with the named keys removed from its
// bound data map.
func (l *Logger) Unbind(keys ...string) *Logger {
	derived := l.shallowCopy()
	l.mu.RLock()
	merged := l.boundData.Clone()
	l.mu.RUnlock()
	for _, k := range keys {
		delete(merged, k)
	}
	derived.boundData = merged
	return derived
}

// ClearContext returns a derived Logger with its bound context map reset
// to empty; bound data is preserved.
func (l *Logger) ClearContext() *Logger {
	derived := l.shallowCopy()
	derived.boundContext = envelope.Map{}
	return derived
}

// WithContext returns a derived Logger whose bound context is merged
// with the identifiers extracted from ctx (correlation/request/user/
// tenant IDs, or the active span's trace/span IDs), and which tags
// itself so later enqueue calls can recognize a flush-thread callback,
// the sync-from-worker-thread special case.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	derived := l.shallowCopy()
	derived.callCtx = ctx
	l.mu.RLock()
	merged := l.boundContext.Merge(contextprop.Extract(ctx))
	l.mu.RUnlock()
	derived.boundContext = merged
	return derived
}

// shallowCopy returns a new Logger sharing every runtime component
// (queue, pool, pipeline, sinks, monitor) with the receiver but holding
// its own bound-context/bound-data maps and mutex. Bind and friends must
// not mutate state shared with the logger they were derived from.
func (l *Logger) shallowCopy() *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := *l
	cp.mu = sync.RWMutex{}
	return &cp
}

// sampler PRNG: seeded independently per Logger instance. A per-logger
// PRNG avoids lock contention and correlated sampling decisions across
// loggers sharing one global source.
func newSampler() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Package logpipe is the public façade over the event pipeline: envelope
// construction, context binding, error deduplication, enqueue, and
// graceful drain. It wires together queue, pipeline, worker, sink,
// pressure, and actuator into one runtime per named logger instance,
// the way a service package wires a driver, a client, and a middleware
// chain behind one constructor.
package logpipe

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"logpipe/actuator"
	"logpipe/apperror"
	"logpipe/config"
	"logpipe/diagnostics"
	"logpipe/envelope"
	"logpipe/level"
	"logpipe/pipeline"
	"logpipe/pressure"
	"logpipe/queue"
	"logpipe/sink"
	"logpipe/worker"
)

// defaultRegistry is the process-wide level registry used by every
// Logger built without an explicit WithRegistry option, so loggers
// obtained independently through Get share one frozen registry instead
// of each freezing its own copy.
var defaultRegistry = level.NewRegistry()

// MetricRecorder is the narrow metric-recording contract logpipe's
// runtime reports against. metricsprom.Recorder satisfies this
// structurally; callers may supply any other implementation, or none
// (nil is a no-op).
type MetricRecorder interface {
	IncSubmitted(level string)
	IncDrained(sinkName string, n int)
	IncDropped(reason string)
	IncEvicted(levelName string)
	ObserveFlushLatency(sinkName string, d time.Duration)
	SetQueueFillRatio(ratio float64)
	SetPressureLevel(ordinal int)
	SetBreakerState(sinkName string, ordinal int)
	SetActiveWorkers(n int)
	SetBatchSize(n int)
}

// Logger is one named pipeline instance: envelope builder, queue, worker
// pool, pipeline stages, sink group, pressure monitor, and actuators.
type Logger struct {
	name     string
	registry *level.Registry
	cfg      *config.Config

	builder *envelope.Builder
	queue   *queue.DualQueue
	pool    *worker.Pool
	pipe    *pipeline.Pipeline
	sinks   *sink.Group
	monitor *pressure.Monitor

	filterHolder *pipeline.SnapshotHolder
	metrics      MetricRecorder
	diag         *diagnostics.Stream

	dedup *errorDedup

	mu           sync.RWMutex
	boundContext envelope.Map
	boundData    envelope.Map
	callCtx      context.Context

	// rt holds state shared by every Logger derived from the same New()
	// call via Bind/Unbind/WithContext/ClearContext. Those derive by
	// copying the Logger struct (shallowCopy); state that must stay
	// singular across the whole family (lifecycle, drain-once, the
	// sampler) lives behind this pointer instead of as value fields, so
	// the copy shares it rather than duplicating sync.Once/sync.Mutex.
	rt *runtimeState
}

type runtimeState struct {
	samplerMu sync.Mutex
	sampler   *rand.Rand

	lifecycle     sync.Mutex
	started       bool
	monitorCancel context.CancelFunc

	drainOnce   sync.Once
	drainResult DrainResult
	drainedFlag uint32
}

// New assembles a Logger from cfg and opts, but does not start it;
// Start is lazy on first use, invoked automatically by the
// first Log call or explicitly via Start.
func New(name string, cfg *config.Config, opts ...Option) (*Logger, error) {
	if cfg == nil {
		return nil, apperror.New(apperror.KindConfig, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "invalid config", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	registry := o.registry
	if registry == nil {
		registry = defaultRegistry
	}
	if err := registry.SetProtected(cfg.Core.ProtectedLevels...); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "invalid protected_levels", err)
	}
	registry.Freeze()

	minLevel, ok := registry.Lookup(cfg.Core.MinLevel)
	if !ok {
		return nil, apperror.New(apperror.KindConfig, fmt.Sprintf("unknown core.min_level %q", cfg.Core.MinLevel))
	}

	diag := o.diagnostic
	if diag == nil {
		diag = diagnostics.Disabled()
	}

	q := queue.New(cfg.Core.MaxQueueSize, effectiveMaxQueueCap(cfg))

	pipe := pipeline.New()
	pipe.Filters = o.filters
	pipe.Enrichers = o.enrichers
	pipe.Redactors = o.redactors
	pipe.Processors = o.processors
	if cfg.Core.RedactionFailMode == "closed" {
		pipe.RedactionMode = pipeline.FailClosed
	}
	pipe.StrictEnvelope = cfg.Core.StrictEnvelopeMode
	pipe.Diagnostic = diag.Emit

	sinks := o.sinks
	if sinks == nil {
		sinks = []sink.Sink{}
	}
	sinkGroup := sink.NewGroup(sinks)
	sinkGroup.Routes = o.routes
	sinkGroup.Fallback = o.fallback
	if sinkGroup.Fallback == nil {
		sinkGroup.Fallback = sink.NewStderrFallback()
	}
	sinkGroup.Concurrency = cfg.Core.SinkConcurrency
	sinkGroup.Diagnostic = diag.Emit

	filterHolder := pipeline.NewSnapshotHolder(pipeline.NewFilterSnapshot(minLevel, pipeline.TightnessNoop))

	l := &Logger{
		name:         name,
		registry:     registry,
		cfg:          cfg,
		builder:      envelope.NewBuilder(name, envelope.OriginNative),
		queue:        q,
		pipe:         pipe,
		sinks:        sinkGroup,
		filterHolder: filterHolder,
		metrics:      o.metrics,
		diag:         diag,
		dedup:        newErrorDedup(cfg.Core.ErrorDedupeWindow()),
		boundContext: envelope.Map{},
		boundData:    envelope.Map{},
		callCtx:      context.Background(),
		rt:           &runtimeState{sampler: newSampler()},
	}

	l.pool = worker.New(q, l.flushBatch, cfg.Core.BatchMaxSize, effectiveMaxWorkers(cfg))
	l.pool.BatchTimeout = cfg.Core.BatchTimeout()
	l.pool.Diagnostic = diag.Emit
	l.pool.AdaptiveBatch = o.adaptiveBatch

	// Only override the default thresholds when the config actually set
	// adaptive values. A bare CoreConfig{} built by hand (as in tests, or
	// any caller skipping the config loader's defaults) leaves
	// cfg.Adaptive entirely zeroed, which would otherwise fail
	// pressure.Config.Validate()'s strictly-ascending-thresholds check.
	pressureCfg := pressure.DefaultConfig()
	if cfg.Adaptive.ElevatedThreshold > 0 || cfg.Adaptive.HighThreshold > 0 || cfg.Adaptive.CriticalThreshold > 0 {
		pressureCfg.NormalToElevated = pressure.Thresholds{Escalate: cfg.Adaptive.ElevatedThreshold, Deescalate: cfg.Adaptive.ElevatedDeescalate}
		pressureCfg.ElevatedToHigh = pressure.Thresholds{Escalate: cfg.Adaptive.HighThreshold, Deescalate: cfg.Adaptive.HighDeescalate}
		pressureCfg.HighToCritical = pressure.Thresholds{Escalate: cfg.Adaptive.CriticalThreshold, Deescalate: cfg.Adaptive.CriticalDeescalate}
	}
	if cfg.Adaptive.CircuitPressureBoost > 0 {
		pressureCfg.CircuitPressureBoost = cfg.Adaptive.CircuitPressureBoost
	}
	if err := pressureCfg.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "invalid adaptive thresholds", err)
	}

	monitor := pressure.New(pressureCfg)
	monitor.FillRatio = q.FillRatio
	monitor.OpenCircuits = func() int { return l.countOpenBreakers() }
	if cfg.Adaptive.CheckIntervalSeconds > 0 {
		monitor.CheckInterval = time.Duration(cfg.Adaptive.CheckIntervalSeconds * float64(time.Second))
	}
	if cfg.Adaptive.CooldownSeconds > 0 {
		monitor.Cooldown = time.Duration(cfg.Adaptive.CooldownSeconds * float64(time.Second))
	}
	monitor.Diagnostic = diag.Emit

	actuators := &actuator.Set{
		Gates: actuator.Gates{
			WorkerScaling:    cfg.Adaptive.GateWorkerScaling,
			QueueGrowth:      cfg.Adaptive.GateQueueGrowth,
			BatchSizing:      cfg.Adaptive.GateBatchSizing,
			FilterTightening: cfg.Adaptive.GateFilterTightening,
		},
		BaseWorkers:    cfg.Core.WorkerCount,
		MaxWorkers:     effectiveMaxWorkers(cfg),
		ScaleTo:        func(n int) { l.pool.ScaleTo(context.Background(), n) },
		Queue:          q,
		BaseQueueCap:   cfg.Core.MaxQueueSize,
		MaxQueueGrowth: effectiveMaxQueueCap(cfg),
		BaseBatchSize:  cfg.Core.BatchMaxSize,
		SetBatchSize:   l.pool.SetBatchSize,
		BaseLevel:      minLevel,
		FilterHolder:   filterHolder,
		Diagnostic:     diag.Emit,
	}
	if !cfg.Adaptive.Enabled {
		actuators.Gates = actuator.Gates{}
	}
	monitor.OnTransition = actuators.OnTransition
	l.monitor = monitor

	return l, nil
}

func effectiveMaxWorkers(cfg *config.Config) int {
	if cfg.Core.MaxWorkerCount > 0 {
		return cfg.Core.MaxWorkerCount
	}
	return cfg.Core.WorkerCount
}

func effectiveMaxQueueCap(cfg *config.Config) int {
	if cfg.Core.MaxQueueGrowth > 0 {
		return cfg.Core.MaxQueueGrowth
	}
	return cfg.Core.MaxQueueSize
}

// Name returns the logger's registered name.
func (l *Logger) Name() string { return l.name }

// Start starts sinks, the worker pool, and the pressure monitor, in that
// order. Idempotent.
func (l *Logger) Start(ctx context.Context) error {
	l.rt.lifecycle.Lock()
	defer l.rt.lifecycle.Unlock()
	if l.rt.started {
		return nil
	}

	if err := l.sinks.Start(ctx); err != nil {
		return apperror.Wrap(apperror.KindLifecycle, "failed to start sinks", err)
	}

	initialWorkers := l.cfg.Core.WorkerCount
	if initialWorkers < 1 {
		initialWorkers = 1
	}
	l.pool.Start(ctx, initialWorkers)

	if l.cfg.Adaptive.Enabled {
		monitorCtx, cancel := context.WithCancel(context.Background())
		l.rt.monitorCancel = cancel
		go l.monitor.Run(monitorCtx)
	}

	l.rt.started = true
	return nil
}

func (l *Logger) ensureStarted() {
	l.rt.lifecycle.Lock()
	started := l.rt.started
	l.rt.lifecycle.Unlock()
	if !started {
		_ = l.Start(context.Background())
	}
}

func (l *Logger) countOpenBreakers() int {
	count := 0
	for _, s := range l.sinks.Sinks {
		if l.sinks.BreakerState(s.Name()).String() == "open" {
			count++
		}
	}
	return count
}

// reportMetrics publishes the current runtime gauges. Called
// opportunistically from the flush path rather than on its own timer,
// since logpipe carries no separate metrics-export loop of its own;
// metrics are a recording interface only, driven by whatever cadence
// the caller's MetricRecorder implementation scrapes on.
func (l *Logger) reportMetrics() {
	if l.metrics == nil {
		return
	}
	l.metrics.SetQueueFillRatio(l.queue.FillRatio())
	l.metrics.SetPressureLevel(int(l.monitor.CurrentLevel()))
	l.metrics.SetActiveWorkers(l.pool.ActiveWorkers())
	l.metrics.SetBatchSize(l.pool.TargetBatchSize())
	for _, s := range l.sinks.Sinks {
		var ordinal int
		switch l.sinks.BreakerState(s.Name()).String() {
		case "half-open":
			ordinal = 1
		case "open":
			ordinal = 2
		}
		l.metrics.SetBreakerState(s.Name(), ordinal)
	}
}


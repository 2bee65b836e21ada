package logpipe

import (
	"context"
	"sync/atomic"
	"time"

	"logpipe/apperror"
	"logpipe/pressure"
)

// DrainResult summarizes one Drain call.
type DrainResult struct {
	MessagesDrained int64
	Duration        time.Duration
	TimedOut        bool
	SinkHealth      []HealthReport
	Errors          []error
	AdaptiveSummary *pressure.Stats
}

// Drain stops the logger: workers finish their current batch, the queue
// is drained down to empty or until the shutdown timeout elapses,
// whichever comes first, then the pressure monitor and sinks are
// stopped in that order. Idempotent: a second call returns the first
// call's cached result.
func (l *Logger) Drain(ctx context.Context) DrainResult {
	l.rt.drainOnce.Do(func() {
		l.rt.drainResult = l.drain(ctx)
		atomic.StoreUint32(&l.rt.drainedFlag, 1)
	})
	return l.rt.drainResult
}

func (l *Logger) drain(ctx context.Context) DrainResult {
	l.rt.lifecycle.Lock()
	started := l.rt.started
	l.rt.lifecycle.Unlock()
	if !started {
		return DrainResult{}
	}

	start := time.Now()
	timeout := l.cfg.Core.ShutdownTimeout()
	deadline := start.Add(timeout)
	baseline := l.pool.Drained()

	result := DrainResult{}

	l.drainQueueUntilEmpty(deadline)
	if time.Now().After(deadline) && l.queue.Len() > 0 {
		result.TimedOut = true
	}

	stopCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	l.pool.Stop(stopCtx)
	result.MessagesDrained = l.pool.Drained() - baseline

	if l.rt.monitorCancel != nil {
		l.rt.monitorCancel()
		stats := l.monitor.Stats()
		result.AdaptiveSummary = &stats
	}

	result.SinkHealth = l.CheckHealth(stopCtx)

	if err := l.sinks.Stop(stopCtx); err != nil {
		result.Errors = append(result.Errors, apperror.Wrap(apperror.KindLifecycle, "sink stop failed", err))
	}

	result.Duration = time.Since(start)
	return result
}

// drainQueueUntilEmpty blocks while workers (still running) consume the
// queue, returning once it's empty or the deadline passes. This covers
// backlog the worker pool's own Stop wouldn't otherwise flush, since a
// worker that's already received its stop signal won't start another
// drain cycle. The actual drained count is read once from
// l.pool.Drained() by the caller after Stop, not accumulated here.
func (l *Logger) drainQueueUntilEmpty(deadline time.Time) {
	const pollInterval = 10 * time.Millisecond
	for time.Now().Before(deadline) {
		if l.queue.Len() == 0 {
			return
		}
		time.Sleep(pollInterval)
	}
}

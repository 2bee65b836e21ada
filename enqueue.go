package logpipe

import (
	"time"

	"logpipe/queue"
)

// enqueue implements the backpressure policy : a
// protected item that finds its lane full evicts the oldest live
// standard-lane entry before retrying; a non-protected item either
// drops immediately (drop_on_full=true) or waits up to
// backpressure_wait_ms for room before dropping.
//
// A call recognized as originating from inside this logger's own flush
// path (see workerctx.go) always drops immediately regardless of
// policy, since waiting here could only be relieved by the very flush
// that's blocked on it.
func (l *Logger) enqueue(item queue.Item) {
	if l.callCtx != nil && isWorkerThread(l.callCtx) {
		if !l.queue.Enqueue(item) {
			l.onDropped(item)
		}
		return
	}

	if l.queue.Enqueue(item) {
		return
	}

	if item.Protected {
		if levelName, ok := l.queue.TryEvictForProtected(); ok {
			l.diag.Emit("backpressure", "protected-eviction", map[string]any{
				"logger": l.name, "evicted_level": levelName,
			})
			if l.metrics != nil {
				l.metrics.IncEvicted(levelName)
			}
			if l.queue.Enqueue(item) {
				return
			}
		}
		l.onDropped(item)
		return
	}

	if l.cfg.Core.DropOnFull {
		l.onDropped(item)
		return
	}

	if l.waitForRoom(l.cfg.Core.BackpressureWait()) && l.queue.Enqueue(item) {
		return
	}
	l.onDropped(item)
}

// waitForRoom blocks up to timeout for the queue's best-effort
// not-empty/drained signal, giving a worker a chance to free capacity.
// It returns false if timeout elapses first; callers must still re-check
// Enqueue themselves, since the signal only means "something changed",
// not "there is room now".
func (l *Logger) waitForRoom(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.queue.NotifyChan():
		return true
	case <-timer.C:
		return false
	}
}

func (l *Logger) onDropped(item queue.Item) {
	l.diag.Emit("backpressure", "queue-full-drop", map[string]any{
		"logger": l.name, "level": item.Event.Level.Name(),
	})
	l.recordDropped("queue_full")
}

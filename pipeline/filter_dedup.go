package pipeline

import (
	"sync"
	"time"

	"logpipe/envelope"
)

// DedupFilter admits only the first occurrence of a (logger, message)
// pair within a sliding window, dropping repeats. Intended for noisy
// error loops that would otherwise flood a sink.
type DedupFilter struct {
	Window time.Duration
	Now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewDedupFilter(window time.Duration) *DedupFilter {
	if window <= 0 {
		window = time.Minute
	}
	return &DedupFilter{
		Window: window,
		Now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

func (f *DedupFilter) Name() string { return "dedup" }

func (f *DedupFilter) ShouldEmit(e *envelope.Event) (*envelope.Event, bool) {
	key := e.LoggerName + "\x00" + e.Message

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.Now()
	if last, ok := f.seen[key]; ok && now.Sub(last) < f.Window {
		return e, false
	}
	f.seen[key] = now

	// Opportunistic cleanup so the map doesn't grow unbounded across a
	// long-lived logger; proportional to hit count, not a timer.
	if len(f.seen) > 4096 {
		for k, t := range f.seen {
			if now.Sub(t) >= f.Window {
				delete(f.seen, k)
			}
		}
	}
	return e, true
}

package pipeline

import (
	"sync"
	"time"

	"logpipe/envelope"
)

// RateLimitFilter is a token-bucket filter keyed by logger name, grounded
// on the same token-bucket shape used for self-diagnostics throttling.
type RateLimitFilter struct {
	RatePerSecond float64
	Burst         int
	Now           func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

func NewRateLimitFilter(ratePerSecond float64, burst int) *RateLimitFilter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitFilter{
		RatePerSecond: ratePerSecond,
		Burst:         burst,
		Now:           time.Now,
		buckets:       make(map[string]*tokenBucket),
	}
}

func (f *RateLimitFilter) Name() string { return "rate-limit" }

func (f *RateLimitFilter) ShouldEmit(e *envelope.Event) (*envelope.Event, bool) {
	if f.RatePerSecond <= 0 {
		return e, true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.buckets[e.LoggerName]
	if !ok {
		b = &tokenBucket{tokens: float64(f.Burst), lastRefill: f.Now()}
		f.buckets[e.LoggerName] = b
	}

	now := f.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * f.RatePerSecond
	if b.tokens > float64(f.Burst) {
		b.tokens = float64(f.Burst)
	}

	if b.tokens >= 1 {
		b.tokens--
		return e, true
	}
	return e, false
}

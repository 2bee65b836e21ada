// Package diagnostics implements logpipe's internal, rate-limited
// out-of-band warning channel. Every recoverable failure in
// the data path funnels through here instead of being raised to the
// caller; emission never blocks and never panics, and a disabled stream is
// a pure no-op.
package diagnostics

import (
	"log/slog"
	"sync"
	"time"
)

// Event is one diagnostic record. Component names the stage or subsystem
// that produced it (redactor, enricher, processor, sink, breaker, pressure,
// queue, backpressure, drain), Reason is a short machine-stable cause.
type Event struct {
	Component string
	Reason    string
	Fields    map[string]any
}

// Stream is a token-bucket-limited sink for diagnostic Events. The zero
// value is not usable; construct with New or Disabled.
type Stream struct {
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	enabled bool
}

// New returns a Stream that writes through logger, allowing at most
// ratePerSecond Events per second on average with a burst capacity of
// burst. A ratePerSecond <= 0 disables rate limiting (unbounded).
func New(logger *slog.Logger, ratePerSecond float64, burst int) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if burst <= 0 {
		burst = 1
	}
	return &Stream{
		logger:     logger,
		now:        time.Now,
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: ratePerSecond,
		lastRefill: time.Now(),
		enabled:    true,
	}
}

// Disabled returns a Stream whose Emit is a complete no-op.
func Disabled() *Stream {
	return &Stream{enabled: false}
}

// Emit records a diagnostic event if the rate limiter admits it. It never
// blocks the caller and never panics; a dropped-due-to-rate-limit event is
// simply discarded (diagnostics about diagnostics would be an infinite
// regress this design does not ask for).
func (s *Stream) Emit(component, reason string, fields map[string]any) {
	if s == nil || !s.enabled {
		return
	}
	if !s.admit() {
		return
	}

	attrs := make([]any, 0, len(fields)*2+4)
	attrs = append(attrs, "component", component, "reason", reason)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	s.logger.Warn("logpipe diagnostic", attrs...)
}

func (s *Stream) admit() bool {
	if s.refillRate <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.now()
	elapsed := n.Sub(s.lastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	s.lastRefill = n

	s.tokens += elapsed * s.refillRate
	if s.tokens > s.maxTokens {
		s.tokens = s.maxTokens
	}

	if s.tokens >= 1 {
		s.tokens--
		return true
	}
	return false
}

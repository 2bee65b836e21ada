package pipeline

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"logpipe/envelope"
)

// SamplingMode selects which sampling strategy SamplingFilter runs.
type SamplingMode int

const (
	// SamplingUniform admits a fixed fraction of events regardless of rate.
	SamplingUniform SamplingMode = iota
	// SamplingAdaptiveEPS adjusts the admit fraction to track a target
	// events-per-second rate, using an EWMA of observed throughput.
	SamplingAdaptiveEPS
	// SamplingTraceAware always admits events carrying a trace id in
	// Context, applying the underlying ratio only to untraced events.
	SamplingTraceAware
)

// RandFunc returns a float64 in [0, 1). Exists so tests can inject a
// deterministic sequence instead of math/rand.
type RandFunc func() float64

// SamplingFilter implements the uniform / adaptive-target-EPS /
// trace-aware sampling strategies.
type SamplingFilter struct {
	Mode      SamplingMode
	Ratio     float64 // used by SamplingUniform, by SamplingTraceAware for untraced events, and as SamplingAdaptiveEPS's starting rate
	TargetEPS float64 // used by SamplingAdaptiveEPS
	Now       func() time.Time
	Rand      RandFunc

	mu          sync.Mutex
	windowStart time.Time
	windowCount int
	ewmaEPS     float64
	currentRate float64
}

func NewSamplingFilter(mode SamplingMode, ratio, targetEPS float64) *SamplingFilter {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &SamplingFilter{
		Mode:        mode,
		Ratio:       ratio,
		TargetEPS:   targetEPS,
		Now:         time.Now,
		Rand:        defaultRand,
		currentRate: ratio,
	}
}

func (f *SamplingFilter) Name() string { return "sampling" }

func (f *SamplingFilter) ShouldEmit(e *envelope.Event) (*envelope.Event, bool) {
	switch f.Mode {
	case SamplingTraceAware:
		if traceID, ok := e.Context["trace_id"]; ok && traceID != nil && traceID != "" {
			return e, true
		}
		return e, f.admit(f.Ratio)
	case SamplingAdaptiveEPS:
		return e, f.admit(f.adaptiveRatio())
	default:
		return e, f.admit(f.Ratio)
	}
}

func (f *SamplingFilter) admit(ratio float64) bool {
	if ratio >= 1 {
		return true
	}
	if ratio <= 0 {
		return false
	}
	return f.Rand() < ratio
}

// adaptiveRatio updates an EWMA of observed event rate over 1-second
// windows and returns a ratio that would, if sustained, bring throughput
// toward TargetEPS.
func (f *SamplingFilter) adaptiveRatio() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.Now()
	if f.windowStart.IsZero() {
		f.windowStart = now
	}
	f.windowCount++

	elapsed := now.Sub(f.windowStart).Seconds()
	if elapsed >= 1.0 {
		observed := float64(f.windowCount) / elapsed
		const alpha = 0.3
		if f.ewmaEPS == 0 {
			f.ewmaEPS = observed
		} else {
			f.ewmaEPS = alpha*observed + (1-alpha)*f.ewmaEPS
		}
		f.windowStart = now
		f.windowCount = 0

		if f.ewmaEPS > 0 && f.TargetEPS > 0 {
			ratio := f.TargetEPS / f.ewmaEPS
			f.currentRate = math.Max(0, math.Min(1, ratio))
		}
	}
	return f.currentRate
}

func defaultRand() float64 {
	return rand.Float64()
}

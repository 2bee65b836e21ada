package pressure

import (
	"context"
	"sync"
	"time"
)

// FillRatioFunc returns the queue's current actual fill ratio in [0, 1].
type FillRatioFunc func() float64

// OpenCircuitCountFunc returns the current count of open circuit
// breakers, used to compute the effective fill ratio boost.
type OpenCircuitCountFunc func() int

// TransitionFunc is invoked once per settled transition, after cooldown
// has elapsed, with the old and new pressure levels.
type TransitionFunc func(old, new_ Level)

// DiagnosticFunc reports a recovered monitor-loop failure; the monitor
// is fail-open, so exceptions in sampling or actuator callbacks never
// stop the loop.
type DiagnosticFunc func(component, reason string, fields map[string]any)

func noopDiagnostic(string, string, map[string]any) {}

// Stats is the aggregate metrics the monitor accumulates over its
// lifetime.
type Stats struct {
	EscalationCount   int64
	DeescalationCount int64
	PeakLevel         Level
	TimeAtLevel       map[Level]time.Duration
}

// Monitor runs the fixed-cadence sampling loop and hysteresis state
// machine.
type Monitor struct {
	Config        Config
	FillRatio     FillRatioFunc
	OpenCircuits  OpenCircuitCountFunc
	CheckInterval time.Duration
	Cooldown      time.Duration
	Now           func() time.Time
	OnTransition  TransitionFunc
	Diagnostic    DiagnosticFunc

	mu             sync.Mutex
	level          Level
	lastTransition time.Time
	stats          Stats
	levelEnteredAt time.Time
}

// New returns a Monitor with default cadence (0.25s) and cooldown
// (2s). Callers must set FillRatio before calling Sample or Run.
func New(cfg Config) *Monitor {
	return &Monitor{
		Config:        cfg,
		CheckInterval: 250 * time.Millisecond,
		Cooldown:      2 * time.Second,
		Now:           time.Now,
		Diagnostic:    noopDiagnostic,
		stats:         Stats{TimeAtLevel: make(map[Level]time.Duration)},
	}
}

// CurrentLevel returns the current settled pressure level.
func (m *Monitor) CurrentLevel() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Stats returns a copy of the accumulated metrics.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.stats
	out.TimeAtLevel = make(map[Level]time.Duration, len(m.stats.TimeAtLevel))
	for k, v := range m.stats.TimeAtLevel {
		out.TimeAtLevel[k] = v
	}
	return out
}

// EffectiveFillRatio computes actual fill ratio plus the open-circuit
// pressure boost.
func (m *Monitor) EffectiveFillRatio() float64 {
	ratio := 0.0
	if m.FillRatio != nil {
		ratio = m.FillRatio()
	}
	if m.OpenCircuits != nil {
		ratio += float64(m.OpenCircuits()) * m.Config.CircuitPressureBoost
	}
	if ratio > 1.5 {
		ratio = 1.5 // generous ceiling; callers only compare against thresholds <= 1
	}
	return ratio
}

// Sample takes one reading and advances the state machine, invoking
// OnTransition if a transition settles past cooldown. Safe to call from
// a test without a running loop.
func (m *Monitor) Sample() {
	defer func() {
		if r := recover(); r != nil {
			m.diag("pressure", "panic-recovered", map[string]any{"panic": r})
		}
	}()

	ratio := m.EffectiveFillRatio()

	m.mu.Lock()
	now := m.Now()
	if m.levelEnteredAt.IsZero() {
		m.levelEnteredAt = now
	}
	next := m.nextLevelLocked(ratio)
	if next == m.level {
		m.mu.Unlock()
		return
	}

	if m.lastTransition.IsZero() {
		m.lastTransition = now.Add(-m.Cooldown - time.Nanosecond)
	}
	if now.Sub(m.lastTransition) < m.Cooldown {
		m.mu.Unlock()
		return
	}

	old := m.level
	m.stats.TimeAtLevel[old] += now.Sub(m.levelEnteredAt)
	m.levelEnteredAt = now
	m.level = next
	m.lastTransition = now
	if next > old {
		m.stats.EscalationCount++
	} else {
		m.stats.DeescalationCount++
	}
	if next > m.stats.PeakLevel {
		m.stats.PeakLevel = next
	}
	m.mu.Unlock()

	if m.OnTransition != nil {
		m.safeTransition(old, next)
	}
}

func (m *Monitor) safeTransition(old, next Level) {
	defer func() {
		if r := recover(); r != nil {
			m.diag("actuator", "panic-recovered", map[string]any{"panic": r})
		}
	}()
	m.OnTransition(old, next)
}

// nextLevelLocked applies the hysteresis rules: escalate when ratio
// crosses the next boundary's escalate threshold, de-escalate when it
// falls below the current level's de-escalate threshold. Only one level
// of movement per sample, since sampling cadence is fast relative to
// fill-ratio change in practice and this matches this design's boundary
// edge-case (escalates exactly on the sample that meets the threshold).
func (m *Monitor) nextLevelLocked(ratio float64) Level {
	switch m.level {
	case Normal:
		if ratio >= m.Config.NormalToElevated.Escalate {
			return Elevated
		}
	case Elevated:
		if ratio >= m.Config.ElevatedToHigh.Escalate {
			return High
		}
		if ratio < m.Config.NormalToElevated.Deescalate {
			return Normal
		}
	case High:
		if ratio >= m.Config.HighToCritical.Escalate {
			return Critical
		}
		if ratio < m.Config.ElevatedToHigh.Deescalate {
			return Elevated
		}
	case Critical:
		if ratio < m.Config.HighToCritical.Deescalate {
			return High
		}
	}
	return m.level
}

// Run drives Sample on CheckInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.checkInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample()
		}
	}
}

func (m *Monitor) checkInterval() time.Duration {
	if m.CheckInterval <= 0 {
		return 250 * time.Millisecond
	}
	return m.CheckInterval
}

func (m *Monitor) diag(component, reason string, fields map[string]any) {
	if m.Diagnostic != nil {
		m.Diagnostic(component, reason, fields)
	}
}

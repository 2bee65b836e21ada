// Package actuator implements the four pressure-transition actuators
// : worker scaling, queue growth, batch sizing, and filter
// tightening. Each is an independently gated callback the pressure
// monitor invokes with (old, new) levels; failures are contained so one
// misbehaving actuator never blocks the others or the data path.
package actuator

import (
	"logpipe/level"
	"logpipe/pipeline"
	"logpipe/pressure"
	"logpipe/queue"
)

// Gates enables or disables each actuator independently, 
// ("Each gate is independently configurable").
type Gates struct {
	WorkerScaling    bool
	QueueGrowth      bool
	BatchSizing      bool
	FilterTightening bool
}

// DefaultGates enables all four actuators.
func DefaultGates() Gates {
	return Gates{WorkerScaling: true, QueueGrowth: true, BatchSizing: true, FilterTightening: true}
}

// DiagnosticFunc reports a recovered actuator failure.
type DiagnosticFunc func(component, reason string, fields map[string]any)

func noopDiagnostic(string, string, map[string]any) {}

// WorkerScalerFunc resizes the worker pool to exactly n workers (capped
// by the pool's own max_workers internally).
type WorkerScalerFunc func(n int)

// Set bundles everything the actuator registry needs to react to
// pressure transitions.
type Set struct {
	Gates Gates

	BaseWorkers int
	MaxWorkers  int
	ScaleTo     WorkerScalerFunc

	Queue          *queue.DualQueue
	BaseQueueCap   int
	MaxQueueGrowth int // absolute capacity ceiling

	BaseBatchSize int
	SetBatchSize  func(n int)

	BaseLevel    level.Level
	FilterHolder *pipeline.SnapshotHolder

	Diagnostic DiagnosticFunc
}

// OnTransition is registered as the pressure.Monitor's TransitionFunc. It
// runs each enabled actuator in isolation, recovering individual panics.
func (s *Set) OnTransition(old, new_ pressure.Level) {
	if s.Gates.WorkerScaling {
		s.safe("worker_scaling", func() { s.scaleWorkers(new_) })
	}
	if s.Gates.QueueGrowth {
		s.safe("queue_growth", func() { s.growQueue(new_) })
	}
	if s.Gates.BatchSizing {
		s.safe("batch_sizing", func() { s.resizeBatch(new_) })
	}
	if s.Gates.FilterTightening {
		s.safe("filter_tightening", func() { s.tightenFilter(new_) })
	}
}

func (s *Set) safe(component string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.diag(component, "panic-recovered", map[string]any{"panic": r})
		}
	}()
	fn()
}

func (s *Set) scaleWorkers(lvl pressure.Level) {
	if s.ScaleTo == nil {
		return
	}
	base := s.BaseWorkers
	if base <= 0 {
		base = 1
	}
	var target int
	switch lvl {
	case pressure.Normal:
		target = base
	case pressure.Elevated:
		target = base + 1
	case pressure.High:
		target = base + 2
	case pressure.Critical:
		target = s.MaxWorkers
	}
	if s.MaxWorkers > 0 && target > s.MaxWorkers {
		target = s.MaxWorkers
	}
	s.ScaleTo(target)
}

func (s *Set) growQueue(lvl pressure.Level) {
	if s.Queue == nil || s.MaxQueueGrowth <= s.BaseQueueCap {
		return
	}
	growthRange := float64(s.MaxQueueGrowth - s.BaseQueueCap)
	var fraction float64
	switch lvl {
	case pressure.Elevated:
		fraction = 1.0 / 3.0
	case pressure.High:
		fraction = 2.0 / 3.0
	case pressure.Critical:
		fraction = 1.0
	default:
		return // NORMAL never grows; growth is one-directional already
	}
	target := s.BaseQueueCap + int(growthRange*fraction)
	s.Queue.GrowCapacity(target)
}

func (s *Set) resizeBatch(lvl pressure.Level) {
	if s.SetBatchSize == nil || s.BaseBatchSize <= 0 {
		return
	}
	var multiplier float64
	switch lvl {
	case pressure.Normal:
		multiplier = 1.0
	case pressure.Elevated:
		multiplier = 1.5
	case pressure.High:
		multiplier = 2.0
	case pressure.Critical:
		multiplier = 4.0
	}
	s.SetBatchSize(int(float64(s.BaseBatchSize) * multiplier))
}

func (s *Set) tightenFilter(lvl pressure.Level) {
	if s.FilterHolder == nil {
		return
	}
	var tightness pipeline.Tightness
	switch lvl {
	case pressure.Normal:
		tightness = pipeline.TightnessNoop
	case pressure.Elevated:
		tightness = pipeline.TightnessSoft
	case pressure.High:
		tightness = pipeline.TightnessMedium
	case pressure.Critical:
		tightness = pipeline.TightnessAggressive
	}
	s.FilterHolder.Store(pipeline.NewFilterSnapshot(s.BaseLevel, tightness))
}

func (s *Set) diag(component, reason string, fields map[string]any) {
	if s.Diagnostic != nil {
		s.Diagnostic(component, reason, fields)
	} else {
		noopDiagnostic(component, reason, fields)
	}
}

// Package breaker implements the per-sink circuit breaker state machine:
// closed to open after N consecutive failures, open to half-open after a
// recovery timeout, half-open resolving on the very next write (one
// success closes, one failure reopens).
package breaker

import (
	"sync"
	"time"
)

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// TransitionFunc is called synchronously on every state transition, for
// diagnostics/metrics hookup. It must not block.
type TransitionFunc func(sinkName string, from, to State)

// Breaker guards a single sink. The zero value is not usable; construct
// with New.
type Breaker struct {
	SinkName         string
	FailureThreshold int
	RecoveryTimeout  time.Duration
	Now              func() time.Time
	OnTransition     TransitionFunc

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
}

// New returns a Breaker for sinkName with this design defaults: 5
// consecutive failures to open, 30s recovery timeout.
func New(sinkName string) *Breaker {
	return &Breaker{
		SinkName:         sinkName,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		Now:              time.Now,
		state:            Closed,
	}
}

// Allow reports whether a write attempt should proceed for this sink
// right now. An Open breaker inside its recovery timeout returns false;
// once the timeout has elapsed it transitions to HalfOpen and returns
// true for the probing write. A HalfOpen breaker keeps returning true
// until the next RecordSuccess or RecordFailure resolves it, so writes
// racing the probe are admitted as well; the first outcome recorded
// decides the new state.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		return true
	case Open:
		if b.Now().Sub(b.openedAt) >= b.RecoveryTimeout {
			b.transitionLocked(HalfOpen)
			return true
		}
		return false
	}
	return false
}

// RecordSuccess reports a successful write. In HalfOpen this closes the
// breaker; in Closed it resets the consecutive-failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFail = 0
	if b.state == HalfOpen {
		b.transitionLocked(Closed)
	}
}

// RecordFailure reports a failed write. In HalfOpen this reopens the
// breaker immediately. In Closed it opens the breaker once
// FailureThreshold consecutive failures have accumulated.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.transitionLocked(Open)
		return
	}

	b.consecutiveFail++
	if b.state == Closed && b.consecutiveFail >= b.FailureThreshold {
		b.transitionLocked(Open)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == Open {
		b.openedAt = b.Now()
	}
	if to == Closed {
		b.consecutiveFail = 0
	}
	if b.OnTransition != nil {
		b.OnTransition(b.SinkName, from, to)
	}
}

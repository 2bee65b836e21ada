package sink

import (
	"context"
	"sync"

	"logpipe/breaker"
	"logpipe/envelope"
)

// DiagnosticFunc reports a recoverable sink-writer failure.
type DiagnosticFunc func(component, reason string, fields map[string]any)

func noopDiagnostic(string, string, map[string]any) {}

// WriteResult summarizes one sink's outcome for a single flush, rolled
// up into DrainResult by the worker pool.
type WriteResult struct {
	SinkName        string
	MessagesWritten int
	Success         bool
	ErrorMessage    string
}

// Group owns an ordered list of sinks, an optional routing table, a
// per-sink circuit breaker, and an optional fallback sink for open-
// breaker or failed writes.
type Group struct {
	Sinks         []Sink
	Routes        []Route
	Fallback      Sink
	Concurrency   int
	Diagnostic    DiagnosticFunc
	OnBreakerTrip breaker.TransitionFunc

	mu       sync.Mutex
	breakers map[string]*breaker.Breaker
}

// NewGroup returns a Group with this design default sink_concurrency (8).
func NewGroup(sinks []Sink) *Group {
	g := &Group{
		Sinks:       sinks,
		Concurrency: 8,
		Diagnostic:  noopDiagnostic,
		breakers:    make(map[string]*breaker.Breaker),
	}
	for _, s := range sinks {
		g.breakers[s.Name()] = breaker.New(s.Name())
	}
	return g
}

// Start starts every sink in order.
func (g *Group) Start(ctx context.Context) error {
	for _, s := range g.Sinks {
		if err := s.Start(ctx); err != nil {
			return err
		}
	}
	if g.Fallback != nil {
		return g.Fallback.Start(ctx)
	}
	return nil
}

// Stop stops every sink, collecting and returning the first error while
// still attempting to stop the rest.
func (g *Group) Stop(ctx context.Context) error {
	var firstErr error
	for _, s := range g.Sinks {
		if err := s.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.Fallback != nil {
		if err := g.Fallback.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// targetsFor resolves which sinks should receive e: the first matching
// route's sink list, or every sink if no route matches (fan-out).
func (g *Group) targetsFor(e *envelope.Event) []Sink {
	for _, r := range g.Routes {
		if r.matches(e.Level) {
			return g.byName(r.Sinks)
		}
	}
	return g.Sinks
}

func (g *Group) byName(names []string) []Sink {
	out := make([]Sink, 0, len(names))
	index := make(map[string]Sink, len(g.Sinks))
	for _, s := range g.Sinks {
		index[s.Name()] = s
	}
	for _, n := range names {
		if s, ok := index[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// WriteBatch delivers every event in batch to its resolved target
// sinks, bounded by Concurrency in-flight sink writes at a time.
func (g *Group) WriteBatch(ctx context.Context, batch []*envelope.Event) []WriteResult {
	concurrency := g.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	sem := make(chan struct{}, concurrency)

	resultsCh := make(chan WriteResult, len(batch)*maxTargets(g))
	var wg sync.WaitGroup

	for _, e := range batch {
		targets := g.targetsFor(e)
		for _, s := range targets {
			wg.Add(1)
			sem <- struct{}{}
			go func(s Sink, e *envelope.Event) {
				defer wg.Done()
				defer func() { <-sem }()
				resultsCh <- g.writeOne(ctx, s, e)
			}(s, e)
		}
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make([]WriteResult, 0, len(batch))
	for r := range resultsCh {
		results = append(results, r)
	}
	return results
}

func maxTargets(g *Group) int {
	n := len(g.Sinks)
	if n == 0 {
		return 1
	}
	return n
}

func (g *Group) writeOne(ctx context.Context, s Sink, e *envelope.Event) WriteResult {
	br := g.breakerFor(s.Name())

	if !br.Allow() {
		g.diag("breaker", "open-skip", map[string]any{"sink": s.Name()})
		return g.routeToFallback(ctx, s.Name(), e, "circuit open")
	}

	ok, err := s.Write(ctx, e)
	if err != nil || !ok {
		br.RecordFailure()
		reason := "write returned false"
		if err != nil {
			reason = err.Error()
		}
		g.diag("sink", "write-failed", map[string]any{"sink": s.Name(), "reason": reason})
		return g.routeToFallback(ctx, s.Name(), e, reason)
	}

	br.RecordSuccess()
	return WriteResult{SinkName: s.Name(), MessagesWritten: 1, Success: true}
}

func (g *Group) routeToFallback(ctx context.Context, originSink string, e *envelope.Event, reason string) WriteResult {
	if g.Fallback == nil {
		return WriteResult{SinkName: originSink, Success: false, ErrorMessage: reason}
	}
	ok, err := g.Fallback.Write(ctx, e)
	if err != nil || !ok {
		return WriteResult{SinkName: originSink, Success: false, ErrorMessage: reason}
	}
	return WriteResult{SinkName: originSink, MessagesWritten: 1, Success: true, ErrorMessage: "delivered via fallback: " + reason}
}

func (g *Group) breakerFor(name string) *breaker.Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[name]
	if !ok {
		b = breaker.New(name)
		b.OnTransition = g.OnBreakerTrip
		g.breakers[name] = b
	}
	return b
}

func (g *Group) diag(component, reason string, fields map[string]any) {
	if g.Diagnostic != nil {
		g.Diagnostic(component, reason, fields)
	}
}

// BreakerState exposes the current breaker state per sink, used by the
// pressure monitor to treat open breakers as additional pressure signal.
func (g *Group) BreakerState(sinkName string) breaker.State {
	return g.breakerFor(sinkName).State()
}

package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"logpipe/breaker"
	"logpipe/envelope"
	"logpipe/level"
)

type fakeSink struct {
	name    string
	fail    bool
	mu      sync.Mutex
	written []*envelope.Event
}

func (f *fakeSink) Name() string                        { return f.name }
func (f *fakeSink) Start(ctx context.Context) error      { return nil }
func (f *fakeSink) Stop(ctx context.Context) error       { return nil }
func (f *fakeSink) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, errors.New("forced failure")
	}
	f.written = append(f.written, e)
	return true, nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func testEvent() *envelope.Event {
	return &envelope.Event{
		SchemaVersion: envelope.SchemaVersion,
		MessageID:     "id",
		Timestamp:     time.Now(),
		Level:         level.Info,
		Message:       "hi",
		LoggerName:    "test",
		Context:       envelope.Map{},
		Diagnostics:   envelope.Map{},
		Data:          envelope.Map{},
	}
}

func TestGroup_FanOutWithNoRoutes(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	g := NewGroup([]Sink{a, b})

	g.WriteBatch(context.Background(), []*envelope.Event{testEvent()})

	if a.count() != 1 || b.count() != 1 {
		t.Errorf("expected fan-out to both sinks, got a=%d b=%d", a.count(), b.count())
	}
}

func TestGroup_RouteRestrictsTargets(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	g := NewGroup([]Sink{a, b})
	g.Routes = []Route{{Levels: map[string]bool{level.Info.Name(): true}, Sinks: []string{"a"}}}

	g.WriteBatch(context.Background(), []*envelope.Event{testEvent()})

	if a.count() != 1 || b.count() != 0 {
		t.Errorf("expected only sink a to receive the event, got a=%d b=%d", a.count(), b.count())
	}
}

func TestGroup_FailureRoutesToFallback(t *testing.T) {
	failing := &fakeSink{name: "failing", fail: true}
	fallback := &fakeSink{name: "fallback"}
	g := NewGroup([]Sink{failing})
	g.Fallback = fallback

	results := g.WriteBatch(context.Background(), []*envelope.Event{testEvent()})

	if fallback.count() != 1 {
		t.Errorf("expected fallback to receive the failed write, got %d", fallback.count())
	}
	if len(results) != 1 || !results[0].Success {
		t.Errorf("expected a successful result via fallback, got %+v", results)
	}
}

func TestGroup_BreakerOpensAndSkipsSink(t *testing.T) {
	failing := &fakeSink{name: "failing", fail: true}
	g := NewGroup([]Sink{failing})

	for i := 0; i < 5; i++ {
		g.WriteBatch(context.Background(), []*envelope.Event{testEvent()})
	}

	if g.BreakerState("failing") != breaker.Open {
		t.Errorf("expected breaker to open after repeated failures, got %v", g.BreakerState("failing"))
	}
}

func TestStderrFallback_ScrubsSecretKeys(t *testing.T) {
	var buf bytes.Buffer
	s := &StderrFallback{Writer: &buf}

	e := testEvent()
	e.Data["password"] = "hunter2"
	e.Data["username"] = "alice"

	ok, err := s.Write(context.Background(), e)
	if !ok || err != nil {
		t.Fatalf("Write() = %v, %v", ok, err)
	}
	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Error("expected password value to be scrubbed before writing")
	}
	if !strings.Contains(out, "alice") {
		t.Error("expected non-sensitive fields to pass through")
	}
}

package testutil

import (
	"context"
	"testing"
	"time"

	"logpipe/envelope"
	"logpipe/level"
)

func sampleEvent() *envelope.Event {
	reg := level.NewRegistry()
	reg.Freeze()
	info, _ := reg.Lookup("info")
	b := envelope.NewBuilder("test", envelope.OriginNative)
	return b.Build(info, "hello", nil, nil, nil)
}

func TestRecordingSink_RecordsAndFails(t *testing.T) {
	rs := NewRecordingSink("rec")

	ok, err := rs.Write(context.Background(), sampleEvent())
	if err != nil || !ok {
		t.Fatalf("Write() = %v, %v; want true, nil", ok, err)
	}
	if rs.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", rs.Count())
	}

	rs.FailNext(true)
	ok, err = rs.Write(context.Background(), sampleEvent())
	if err != nil || ok {
		t.Fatalf("Write() after FailNext(true) = %v, %v; want false, nil", ok, err)
	}
	if rs.Count() != 1 {
		t.Fatalf("Count() = %d, want still 1 after failed write", rs.Count())
	}
}

func TestFakeClock_AdvancesDeterministically(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(5 * time.Second)
	if want := start.Add(5 * time.Second); !c.Now().Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", c.Now(), want)
	}
}

func TestDiagnosticsRecorder_CapturesEmittedEvents(t *testing.T) {
	rec, stream := NewDiagnosticsRecorder()
	stream.Emit("sink", "write-failed", map[string]any{"sink": "stdout"})

	if rec.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", rec.Count())
	}
}

package queue

import (
	"testing"
	"time"

	"logpipe/envelope"
	"logpipe/level"
)

func mkItem(lvl level.Level, protected bool) Item {
	return Item{
		Event: &envelope.Event{
			Level:     lvl,
			Message:   "m",
			Timestamp: time.Now(),
		},
		Protected: protected,
	}
}

func TestEnqueueDrain_FIFOWithinLane(t *testing.T) {
	q := New(10, 10)

	for i := 0; i < 3; i++ {
		if !q.Enqueue(mkItem(level.Info, false)) {
			t.Fatalf("enqueue %d should succeed", i)
		}
	}

	out := q.DrainBatch(10)
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
}

func TestDrainBatch_ProtectedDrainedFirst(t *testing.T) {
	q := New(10, 10)

	q.Enqueue(mkItem(level.Info, false))
	q.Enqueue(mkItem(level.Critical, true))

	out := q.DrainBatch(1)
	if len(out) != 1 || !out[0].Protected {
		t.Fatalf("expected protected item drained first, got %+v", out)
	}
}

func TestEnqueue_FullLaneRejects(t *testing.T) {
	q := New(2, 2) // lane capacity 1 each

	if !q.Enqueue(mkItem(level.Info, false)) {
		t.Fatal("first enqueue should succeed")
	}
	if q.Enqueue(mkItem(level.Info, false)) {
		t.Fatal("second enqueue into full standard lane should fail")
	}
}

func TestTryEvictForProtected_FreesStandardSlot(t *testing.T) {
	q := New(2, 2)
	q.Enqueue(mkItem(level.Info, false))

	name, ok := q.TryEvictForProtected()
	if !ok || name != level.Info.Name() {
		t.Fatalf("expected eviction of info-level item, got %q %v", name, ok)
	}

	if !q.Enqueue(mkItem(level.Critical, true)) {
		t.Fatal("protected enqueue should now succeed after eviction freed a standard slot")
	}
	if q.EvictedCount(level.Info.Name()) != 1 {
		t.Errorf("EvictedCount = %d, want 1", q.EvictedCount(level.Info.Name()))
	}
}

func TestTryEvictForProtected_EmptyStandardLane(t *testing.T) {
	q := New(2, 2)
	if _, ok := q.TryEvictForProtected(); ok {
		t.Error("expected no eviction candidate in empty standard lane")
	}
}

func TestDrainBatch_SkipsTombstones(t *testing.T) {
	q := New(4, 4)
	q.Enqueue(mkItem(level.Info, false))
	q.Enqueue(mkItem(level.Warning, false))

	if _, ok := q.TryEvictForProtected(); !ok {
		t.Fatal("expected eviction to succeed")
	}

	out := q.DrainBatch(10)
	if len(out) != 1 {
		t.Fatalf("expected 1 live item after eviction, got %d", len(out))
	}
	if out[0].Event.Level.Name() != level.Warning.Name() {
		t.Errorf("expected surviving item to be warning level, got %s", out[0].Event.Level.Name())
	}
}

func TestGrowCapacity_RespectsMaxCapacity(t *testing.T) {
	q := New(4, 6)

	if !q.GrowCapacity(6) {
		t.Fatal("grow to max should succeed")
	}
	if q.Capacity() != 6 {
		t.Errorf("Capacity() = %d, want 6", q.Capacity())
	}
	if q.GrowCapacity(100) {
		t.Error("grow beyond maxCapacity should be clamped, not silently exceeded")
	}
	if q.Capacity() != 6 {
		t.Errorf("Capacity() after clamp attempt = %d, want unchanged 6", q.Capacity())
	}
}

func TestGrowCapacity_PreservesQueuedItems(t *testing.T) {
	q := New(2, 8)
	q.Enqueue(mkItem(level.Info, false))

	if !q.GrowCapacity(8) {
		t.Fatal("grow should succeed")
	}

	for i := 0; i < 3; i++ {
		if !q.Enqueue(mkItem(level.Info, false)) {
			t.Fatalf("enqueue %d after growth should succeed", i)
		}
	}

	out := q.DrainBatch(10)
	if len(out) != 4 {
		t.Fatalf("expected 4 items survived growth, got %d", len(out))
	}
}

func TestGrowCapacity_RejectsShrink(t *testing.T) {
	q := New(8, 8)
	if q.GrowCapacity(4) {
		t.Error("GrowCapacity should reject a smaller capacity")
	}
}

func TestFillRatio(t *testing.T) {
	q := New(4, 4)
	if r := q.FillRatio(); r != 0 {
		t.Errorf("empty FillRatio = %v, want 0", r)
	}
	q.Enqueue(mkItem(level.Info, false))
	q.Enqueue(mkItem(level.Info, true))
	if r := q.FillRatio(); r != 0.5 {
		t.Errorf("FillRatio = %v, want 0.5", r)
	}
}

func TestNotifyChan_SignalsOnEnqueue(t *testing.T) {
	q := New(4, 4)
	q.Enqueue(mkItem(level.Info, false))

	select {
	case <-q.NotifyChan():
	default:
		t.Error("expected a notify signal after enqueue")
	}
}

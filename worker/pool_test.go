package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"logpipe/envelope"
	"logpipe/level"
	"logpipe/queue"
)

func mkItem() queue.Item {
	return queue.Item{Event: &envelope.Event{Level: level.Info, Message: "m", Timestamp: time.Now()}}
}

func TestPool_DrainsAndFlushesEnqueuedItems(t *testing.T) {
	q := queue.New(100, 100)
	var flushed atomic.Int64
	p := New(q, func(ctx context.Context, batch []queue.Item) int {
		flushed.Add(int64(len(batch)))
		return len(batch)
	}, 10, 4)
	p.BatchTimeout = 20 * time.Millisecond

	for i := 0; i < 5; i++ {
		q.Enqueue(mkItem())
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 1)

	deadline := time.Now().Add(time.Second)
	for flushed.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if flushed.Load() != 5 {
		t.Fatalf("flushed = %d, want 5", flushed.Load())
	}

	cancel()
	p.Stop(context.Background())
}

func TestPool_ScaleToSpawnsAndStops(t *testing.T) {
	q := queue.New(10, 10)
	p := New(q, func(ctx context.Context, batch []queue.Item) int { return len(batch) }, 10, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx, 1)
	if p.ActiveWorkers() != 1 {
		t.Fatalf("ActiveWorkers() = %d, want 1", p.ActiveWorkers())
	}

	p.ScaleTo(ctx, 4)
	if p.ActiveWorkers() != 4 {
		t.Errorf("ActiveWorkers() = %d, want 4", p.ActiveWorkers())
	}

	p.ScaleTo(ctx, 2)
	if p.ActiveWorkers() != 2 {
		t.Errorf("ActiveWorkers() = %d, want 2", p.ActiveWorkers())
	}
}

func TestPool_ScaleToRespectsMaxWorkers(t *testing.T) {
	q := queue.New(10, 10)
	p := New(q, func(ctx context.Context, batch []queue.Item) int { return len(batch) }, 10, 3)
	ctx := context.Background()

	p.ScaleTo(ctx, 100)
	if p.ActiveWorkers() != 3 {
		t.Errorf("ActiveWorkers() = %d, want capped at MaxWorkers 3", p.ActiveWorkers())
	}
}

func TestPool_PanicInFlushIsContained(t *testing.T) {
	q := queue.New(10, 10)
	p := New(q, func(ctx context.Context, batch []queue.Item) int { panic("flush exploded") }, 10, 2)
	p.BatchTimeout = 10 * time.Millisecond

	q.Enqueue(mkItem())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 1)
	time.Sleep(50 * time.Millisecond)
	cancel()
	p.Stop(context.Background())
	// Reaching here without the test hanging/panicking is the assertion.
}

func TestSetBatchSize_ClampsToGrowthCeiling(t *testing.T) {
	q := queue.New(10, 10)
	p := New(q, nil, 10, 2)
	p.SetBatchSize(1000)
	if p.targetBatchSize() != 40 {
		t.Errorf("targetBatchSize() = %d, want clamped to 40 (10*4)", p.targetBatchSize())
	}
}

func TestTargetBatchSize_ExportsCurrentTarget(t *testing.T) {
	q := queue.New(10, 10)
	p := New(q, nil, 10, 2)
	if got := p.TargetBatchSize(); got != 10 {
		t.Errorf("TargetBatchSize() = %d, want 10", got)
	}
	p.SetBatchSize(15)
	if got := p.TargetBatchSize(); got != 15 {
		t.Errorf("TargetBatchSize() after SetBatchSize(15) = %d, want 15", got)
	}
}

func TestBatchEWMA_SlowFlushesShrinkTarget(t *testing.T) {
	e := newBatchEWMA()
	next := e.next(10*time.Millisecond, 100)
	if next >= 100 {
		t.Errorf("expected target to shrink for slow flushes, got %d", next)
	}
}

func TestBatchEWMA_FastFlushesGrowTarget(t *testing.T) {
	e := newBatchEWMA()
	next := e.next(time.Microsecond, 100)
	if next <= 100 {
		t.Errorf("expected target to grow for fast flushes, got %d", next)
	}
}

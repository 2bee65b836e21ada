// Package worker implements the adaptive worker pool: a scalable set of
// goroutines each running drain->prepare->write against the shared
// queue, with EWMA-based batch-size adaptation and
// stop-after-current-batch scaling down. Generalizes a single
// buffered-flush-loop writer (ticker-or-channel select driving periodic
// batched writes) into a pool of N drainers fanning batches out to a
// sink group.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"logpipe/queue"
)

// FlushFunc runs the prepare (enrich→redact→process→serialize) and write
// phases for one drained batch, returning the count successfully
// delivered.
type FlushFunc func(ctx context.Context, batch []queue.Item) (delivered int)

// DiagnosticFunc reports a recoverable worker failure.
type DiagnosticFunc func(component, reason string, fields map[string]any)

func noopDiagnostic(string, string, map[string]any) {}

// Pool runs 1..MaxWorkers concurrent drainers against a shared queue.
type Pool struct {
	Queue        *queue.DualQueue
	Flush        FlushFunc
	BatchMaxSize int
	BatchTimeout time.Duration
	MaxWorkers   int
	Diagnostic   DiagnosticFunc

	AdaptiveBatch bool // opt-in EWMA batch-size controller, 

	mu        sync.Mutex
	workers   []*workerHandle
	wg        sync.WaitGroup
	batchSize atomic.Int64

	drained atomic.Int64
}

type workerHandle struct {
	stop chan struct{}
}

// New returns a Pool with defaults: batch_max_size from cfg,
// batch_timeout_seconds 0.25s.
func New(q *queue.DualQueue, flush FlushFunc, batchMaxSize, maxWorkers int) *Pool {
	p := &Pool{
		Queue:        q,
		Flush:        flush,
		BatchMaxSize: batchMaxSize,
		BatchTimeout: 250 * time.Millisecond,
		MaxWorkers:   maxWorkers,
		Diagnostic:   noopDiagnostic,
	}
	p.batchSize.Store(int64(batchMaxSize))
	return p
}

// Start launches n initial workers (1 or 2 per default).
func (p *Pool) Start(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		p.spawnLocked(ctx)
	}
}

// ScaleTo adjusts the live worker count to exactly n, spawning new
// workers or signalling extras to stop after their current batch. The
// pool never terminates a worker mid-batch.
func (p *Pool) ScaleTo(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n > p.MaxWorkers && p.MaxWorkers > 0 {
		n = p.MaxWorkers
	}

	for len(p.workers) < n {
		p.spawnLocked(ctx)
	}
	for len(p.workers) > n {
		last := p.workers[len(p.workers)-1]
		close(last.stop)
		p.workers = p.workers[:len(p.workers)-1]
	}
}

// ActiveWorkers returns the current live worker count.
func (p *Pool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// SetBatchSize updates the target batch size used by subsequent drains,
// called by the batch-sizing actuator.
func (p *Pool) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	max := p.BatchMaxSize
	if max > 0 {
		growthCeiling := max * 4 // : within [1, batch_max_size × growth]; 4x matches the CRITICAL multiplier
		if n > growthCeiling {
			n = growthCeiling
		}
	}
	p.batchSize.Store(int64(n))
}

func (p *Pool) targetBatchSize() int {
	n := int(p.batchSize.Load())
	if n < 1 {
		return 1
	}
	return n
}

// TargetBatchSize returns the pool's current target batch size, for
// callers that want to publish it (e.g. as a gauge) without reaching
// into pool internals.
func (p *Pool) TargetBatchSize() int {
	return p.targetBatchSize()
}

func (p *Pool) spawnLocked(ctx context.Context) {
	h := &workerHandle{stop: make(chan struct{})}
	p.workers = append(p.workers, h)
	p.wg.Add(1)
	go p.loop(ctx, h)
}

func (p *Pool) loop(ctx context.Context, h *workerHandle) {
	defer p.wg.Done()
	ewma := newBatchEWMA()

	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		batch := p.drainWithTimeout(ctx, h)
		if len(batch) == 0 {
			continue
		}

		start := time.Now()
		delivered := p.safeFlush(ctx, batch)
		p.drained.Add(int64(delivered))

		if p.AdaptiveBatch {
			elapsed := time.Since(start)
			if len(batch) > 0 {
				perItem := elapsed / time.Duration(len(batch))
				p.SetBatchSize(ewma.next(perItem, p.targetBatchSize()))
			}
		}
	}
}

// drainWithTimeout blocks up to BatchTimeout waiting for at least one
// item, returning early if the queue already has items or a stop signal
// arrives between timeout ticks.
func (p *Pool) drainWithTimeout(ctx context.Context, h *workerHandle) []queue.Item {
	max := p.targetBatchSize()
	if batch := p.Queue.DrainBatch(max); len(batch) > 0 {
		return batch
	}

	timer := time.NewTimer(p.timeout())
	defer timer.Stop()

	select {
	case <-h.stop:
		return p.Queue.DrainBatch(max)
	case <-ctx.Done():
		return p.Queue.DrainBatch(max)
	case <-p.Queue.NotifyChan():
		return p.Queue.DrainBatch(max)
	case <-timer.C:
		return p.Queue.DrainBatch(max)
	}
}

func (p *Pool) timeout() time.Duration {
	if p.BatchTimeout <= 0 {
		return 250 * time.Millisecond
	}
	return p.BatchTimeout
}

func (p *Pool) safeFlush(ctx context.Context, batch []queue.Item) (delivered int) {
	defer func() {
		if r := recover(); r != nil {
			p.diag("worker", "panic-recovered", map[string]any{"panic": r})
			delivered = 0
		}
	}()
	if p.Flush == nil {
		return 0
	}
	return p.Flush(ctx, batch)
}

// Drained returns the total count of successfully delivered events
// across this pool's lifetime.
func (p *Pool) Drained() int64 {
	return p.drained.Load()
}

// Stop signals every worker to stop accepting new drains and waits for
// them to finish their current batch, or until ctx is done.
func (p *Pool) Stop(ctx context.Context) {
	p.mu.Lock()
	for _, h := range p.workers {
		select {
		case <-h.stop:
		default:
			close(h.stop)
		}
	}
	p.workers = nil
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (p *Pool) diag(component, reason string, fields map[string]any) {
	if p.Diagnostic != nil {
		p.Diagnostic(component, reason, fields)
	}
}

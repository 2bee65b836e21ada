// Package queue implements the bounded dual-lane priority queue described in
// : a protected lane and a standard lane sharing one capacity
// budget, with O(1) tombstone eviction letting an incoming protected event
// displace the oldest standard-lane entry when the queue is full.
package queue

import (
	"sync"

	"logpipe/envelope"
)

// Item is one queued event together with the protected flag computed at
// enqueue time (the queue itself holds no reference to the level registry,
// per the design notes on avoiding cyclic ownership).
type Item struct {
	Event     *envelope.Event
	Protected bool
}

type slot struct {
	item     Item
	tomb     bool
	occupied bool
}

// DualQueue is a bounded MPMC queue with two logical FIFO lanes. Capacity is
// shared between lanes; growth is supported, shrink is not.
type DualQueue struct {
	mu sync.Mutex

	protected []slot // ring buffer
	pHead     int
	pTail     int
	pLen      int
	pTombs    int

	standard []slot // ring buffer
	sHead    int
	sTail    int
	sLen     int
	sTombs   int

	capacity    int // current total capacity, split evenly across lanes
	maxCapacity int // ceiling: base * max_queue_growth

	notEmpty chan struct{} // best-effort wake signal for Wait-based dequeue

	evictedByLevel map[string]int64
}

// New returns a DualQueue with the given base capacity and growth ceiling
// (absolute item count, not a multiplier; callers compute
// base*max_queue_growth once). Capacity is split evenly between the two
// lanes so neither can starve the other's slot budget.
func New(capacity, maxCapacity int) *DualQueue {
	if capacity < 2 {
		capacity = 2
	}
	if maxCapacity < capacity {
		maxCapacity = capacity
	}
	q := &DualQueue{
		capacity:       capacity,
		maxCapacity:    maxCapacity,
		notEmpty:       make(chan struct{}, 1),
		evictedByLevel: make(map[string]int64),
	}
	q.protected = make([]slot, q.laneCapLocked())
	q.standard = make([]slot, q.laneCapLocked())
	return q
}

func (q *DualQueue) laneCapLocked() int {
	return (q.capacity + 1) / 2
}

// Capacity returns the current total capacity (sum of both lanes).
func (q *DualQueue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// MaxCapacity returns the grow ceiling.
func (q *DualQueue) MaxCapacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxCapacity
}

// Len returns the number of live (non-tombstoned) items across both lanes.
func (q *DualQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (q.pLen - q.pTombs) + (q.sLen - q.sTombs)
}

// FillRatio returns live-item count divided by current capacity, in [0, 1].
func (q *DualQueue) FillRatio() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity == 0 {
		return 0
	}
	live := (q.pLen - q.pTombs) + (q.sLen - q.sTombs)
	return float64(live) / float64(q.capacity)
}

// Enqueue attempts a non-blocking enqueue. It returns true on success. On
// failure (lane full), if item.Protected and an eviction candidate exists
// in the standard lane, the caller should retry after TryEvictForProtected;
// Enqueue itself does not evict; eviction is kept a separate, explicit step.
func (q *DualQueue) Enqueue(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	ok := false
	if item.Protected {
		ok = q.pushLocked(&q.protected, &q.pHead, &q.pTail, &q.pLen, item)
	} else {
		ok = q.pushLocked(&q.standard, &q.sHead, &q.sTail, &q.sLen, item)
	}
	if ok {
		q.signalNotEmpty()
	}
	return ok
}

func (q *DualQueue) pushLocked(lane *[]slot, head, tail, length *int, item Item) bool {
	if *length >= len(*lane) {
		return false
	}
	(*lane)[*tail] = slot{item: item, occupied: true}
	*tail = (*tail + 1) % len(*lane)
	*length++
	return true
}

// TryEvictForProtected marks the oldest live standard-lane slot as a
// tombstone, in O(1), freeing capacity for an incoming protected event. It
// returns the evicted event's level name and true, or ("", false) if the
// standard lane has no live victim.
func (q *DualQueue) TryEvictForProtected() (levelName string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.sHead
	for i := 0; i < len(q.standard); i++ {
		s := &q.standard[(idx+i)%len(q.standard)]
		if s.occupied && !s.tomb {
			s.tomb = true
			q.sTombs++
			name := s.item.Event.Level.Name()
			q.evictedByLevel[name]++
			return name, true
		}
	}
	return "", false
}

// EvictedCount returns the queue's own per-level eviction count. The
// Prometheus counter messages_evicted_total is fed separately, by the
// logger's MetricRecorder.IncEvicted call.
func (q *DualQueue) EvictedCount(levelName string) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evictedByLevel[levelName]
}

// DrainBatch pops up to max items, protected lane first, then fills the
// remainder from the standard lane. Tombstoned slots are skipped and
// reclaimed as they're passed over.
func (q *DualQueue) DrainBatch(max int) []Item {
	if max <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, 0, max)
	out = q.popLocked(&q.protected, &q.pHead, &q.pTail, &q.pLen, &q.pTombs, max, out)
	if len(out) < max {
		out = q.popLocked(&q.standard, &q.sHead, &q.sTail, &q.sLen, &q.sTombs, max-len(out), out)
	}
	return out
}

func (q *DualQueue) popLocked(lane *[]slot, head, tail, length, tombs *int, n int, out []Item) []Item {
	for n > 0 && *length > 0 {
		s := &(*lane)[*head]
		*head = (*head + 1) % len(*lane)
		*length--
		if s.tomb {
			*tombs--
			s.occupied = false
			s.tomb = false
			continue
		}
		s.occupied = false
		out = append(out, s.item)
		n--
	}
	return out
}

// GrowCapacity atomically enlarges capacity to newCap, up to maxCapacity.
// Shrinking is rejected: this design forbids online capacity reduction.
func (q *DualQueue) GrowCapacity(newCap int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if newCap <= q.capacity {
		return false
	}
	if newCap > q.maxCapacity {
		newCap = q.maxCapacity
	}
	if newCap <= q.capacity {
		return false
	}

	q.capacity = newCap
	q.resizeLaneLocked(&q.protected, &q.pHead, &q.pTail, &q.pLen)
	q.resizeLaneLocked(&q.standard, &q.sHead, &q.sTail, &q.sLen)
	return true
}

func (q *DualQueue) resizeLaneLocked(lane *[]slot, head, tail, length *int) {
	newLaneCap := q.laneCapLocked()
	if newLaneCap <= len(*lane) {
		return
	}
	resized := make([]slot, newLaneCap)
	n := *length
	for i := 0; i < n; i++ {
		resized[i] = (*lane)[(*head+i)%len(*lane)]
	}
	*lane = resized
	*head = 0
	*tail = n % newLaneCap
}

func (q *DualQueue) signalNotEmpty() {
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

// NotifyChan exposes the best-effort "something was enqueued" signal used
// by the backpressure wait path and by workers blocking between
// batch-timeout ticks. It is not a guarantee: a single pending signal may
// correspond to many enqueues.
func (q *DualQueue) NotifyChan() <-chan struct{} {
	return q.notEmpty
}

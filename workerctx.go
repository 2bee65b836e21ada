package logpipe

import "context"

type workerCtxKey struct{}

// markWorkerThread tags ctx as originating from inside a worker's flush
// callback. Sinks receive a ctx derived from this one, so a sink (or a
// processor/enricher running synchronously inside it) that turns around
// and calls back into the same Logger is recognized and forced onto the
// immediate-drop backpressure path, the sync-from-worker-thread special
// case.
//
// A single-event-loop runtime would deadlock here: a blocked wait inside
// the one loop handling both the log call and its own flush can never be
// relieved. Go's multi-goroutine worker pool doesn't share that hazard,
// since a blocked call from inside one worker's flush doesn't stall the
// loop driving other workers. This guard is kept anyway as a narrower,
// deliberate simplification: it still prevents a logging call made from
// inside this logger's own flush path from waiting on backpressure that
// only that same flush's completion could ever relieve, which would
// otherwise deadlock that one worker against itself. It does not, and
// cannot, detect arbitrary user-plugin reentrancy through unrelated
// goroutines; that class of hazard is out of scope given the default
// policy of blocking external plugin execution from the hot path.
func markWorkerThread(ctx context.Context) context.Context {
	return context.WithValue(ctx, workerCtxKey{}, true)
}

func isWorkerThread(ctx context.Context) bool {
	v, _ := ctx.Value(workerCtxKey{}).(bool)
	return v
}

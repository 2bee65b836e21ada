package logpipe

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"logpipe/config"
)

var (
	cacheMu       sync.Mutex
	cache         = map[string]*Logger{}
	exitHookOnce  sync.Once
	shutdownGrace = 30 * time.Second
)

// Get returns the cached Logger for name, building it with cfg and opts
// on first use. cfg and opts are ignored on a cache hit. The first call to
// Get in a process also installs the SIGINT/SIGTERM drain hook: on
// signal, every cached logger is drained before the process is left to
// exit.
func Get(name string, cfg *config.Config, opts ...Option) (*Logger, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if existing, ok := cache[name]; ok {
		return existing, nil
	}

	l, err := New(name, cfg, opts...)
	if err != nil {
		return nil, err
	}
	cache[name] = l
	installExitHook()
	return l, nil
}

// NewUncached builds a Logger that bypasses the name cache, letting
// tests construct independent instances without reuse. A finalizer
// warns via diagnostics if the instance is garbage collected without
// ever having been drained, since an uncached instance's lifecycle is
// the caller's sole responsibility.
func NewUncached(name string, cfg *config.Config, opts ...Option) (*Logger, error) {
	l, err := New(name, cfg, opts...)
	if err != nil {
		return nil, err
	}
	runtime.SetFinalizer(l, warnIfUndrained)
	return l, nil
}

func warnIfUndrained(l *Logger) {
	if atomic.LoadUint32(&l.rt.drainedFlag) == 0 {
		l.diag.Emit("lifecycle", "undrained-instance-gc", map[string]any{"logger": l.name})
	}
}

func installExitHook() {
	exitHookOnce.Do(func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sig
			DrainAll(shutdownGrace)
		}()
	})
}

// DrainAll drains every cached Logger with a shared timeout, returning
// each one's DrainResult keyed by name. Intended for an explicit
// shutdown call from a host application's own lifecycle, in addition to
// the automatic signal-triggered hook installed by Get.
func DrainAll(timeout time.Duration) map[string]DrainResult {
	cacheMu.Lock()
	snapshot := make(map[string]*Logger, len(cache))
	for name, l := range cache {
		snapshot[name] = l
	}
	cacheMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results := make(map[string]DrainResult, len(snapshot))
	for name, l := range snapshot {
		results[name] = l.Drain(ctx)
	}
	return results
}

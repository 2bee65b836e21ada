package pipeline

import (
	"os"
	"runtime"

	"logpipe/envelope"
)

// RuntimeEnricher attaches process-level facts (pid, goroutine count,
// hostname, Go version) to every event's diagnostics tree. This is the
// supplemented enricher beyond the minimal baseline. The concrete field
// set is drawn from what teacher services log on every request for
// incident correlation.
type RuntimeEnricher struct {
	hostname string
}

func NewRuntimeEnricher() *RuntimeEnricher {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &RuntimeEnricher{hostname: host}
}

func (r *RuntimeEnricher) Name() string { return "runtime-info" }

func (r *RuntimeEnricher) Enrich(e *envelope.Event) envelope.Map {
	return envelope.Map{
		"runtime": envelope.Map{
			"pid":        os.Getpid(),
			"goroutines": runtime.NumGoroutine(),
			"hostname":   r.hostname,
			"go_version": runtime.Version(),
		},
	}
}

package metricsprom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRecorderOn registers every metric against reg instead of the default
// registerer, for tests and for hosts that run their own registry.
func NewRecorderOn(reg prometheus.Registerer, namespace, subsystem string) *Recorder {
	factory := promauto.With(reg)
	r := &Recorder{
		MessagesSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: "messages_submitted_total", Help: "Total number of log events submitted to the pipeline, by level"},
			[]string{"level"},
		),
		MessagesDrained: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: "messages_drained_total", Help: "Total number of log events successfully delivered to a sink"},
			[]string{"sink"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: "messages_dropped_total", Help: "Total number of log events dropped before delivery, by reason"},
			[]string{"reason"},
		),
		MessagesEvicted: factory.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: "messages_evicted_total", Help: "Total number of standard-lane events evicted to admit a protected event"},
			[]string{"level"},
		),
		FlushLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Subsystem: subsystem, Name: "flush_latency_seconds", Help: "Time to prepare and write one batch to one sink", Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}},
			[]string{"sink"},
		),
		QueueFillRatio: factory.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: "queue_fill_ratio", Help: "Current queue occupancy as a fraction of capacity"},
		),
		PressureLevel: factory.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: "pressure_level", Help: "Current backpressure level: 0=normal 1=elevated 2=high 3=critical"},
		),
		SinkBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: "sink_breaker_state", Help: "Per-sink circuit breaker state: 0=closed 1=half-open 2=open"},
			[]string{"sink"},
		),
		ActiveWorkers: factory.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: "worker_pool_active_workers", Help: "Current number of live drain workers"},
		),
		BatchSize: factory.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: "worker_pool_batch_size", Help: "Current target batch size"},
		),
	}
	return r
}

// Handler returns the standard Prometheus scrape endpoint handler against
// the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape endpoint handler against a specific gatherer,
// for hosts running a non-default registry.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Package metricsprom is a Prometheus-backed implementation of logpipe's
// metric-recording contract, wiring promauto-registered
// counters/histograms/gauges under a namespace and subsystem.
package metricsprom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds every metric logpipe's pipeline, worker pool, pressure
// monitor, and sink group report against. Any logpipe component that wants
// metrics takes a narrower interface matching the subset of methods it
// calls; Recorder satisfies all of them structurally, with no explicit
// `implements` declaration needed.
type Recorder struct {
	MessagesSubmitted *prometheus.CounterVec
	MessagesDrained   *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	MessagesEvicted   *prometheus.CounterVec

	FlushLatency *prometheus.HistogramVec

	QueueFillRatio   prometheus.Gauge
	PressureLevel    prometheus.Gauge
	SinkBreakerState *prometheus.GaugeVec

	ActiveWorkers prometheus.Gauge
	BatchSize     prometheus.Gauge
}

// NewRecorder registers every metric under namespace/subsystem against the
// default Prometheus registry.
func NewRecorder(namespace, subsystem string) *Recorder {
	return NewRecorderOn(prometheus.DefaultRegisterer, namespace, subsystem)
}

// IncSubmitted records one accepted event at the given level name.
func (r *Recorder) IncSubmitted(level string) {
	r.MessagesSubmitted.WithLabelValues(level).Inc()
}

// IncDrained records n events delivered to sinkName.
func (r *Recorder) IncDrained(sinkName string, n int) {
	r.MessagesDrained.WithLabelValues(sinkName).Add(float64(n))
}

// IncDropped records one dropped event for reason (e.g. "queue_full",
// "filtered", "redaction_closed").
func (r *Recorder) IncDropped(reason string) {
	r.MessagesDropped.WithLabelValues(reason).Inc()
}

// IncEvicted records one standard-lane eviction at the given level name.
func (r *Recorder) IncEvicted(levelName string) {
	r.MessagesEvicted.WithLabelValues(levelName).Inc()
}

// ObserveFlushLatency records the elapsed time to prepare and write one
// batch to sinkName.
func (r *Recorder) ObserveFlushLatency(sinkName string, d time.Duration) {
	r.FlushLatency.WithLabelValues(sinkName).Observe(d.Seconds())
}

// SetQueueFillRatio publishes the queue's current fill ratio.
func (r *Recorder) SetQueueFillRatio(ratio float64) {
	r.QueueFillRatio.Set(ratio)
}

// SetPressureLevel publishes the pressure monitor's current level as an
// ordinal (0=normal .. 3=critical).
func (r *Recorder) SetPressureLevel(ordinal int) {
	r.PressureLevel.Set(float64(ordinal))
}

// SetBreakerState publishes sinkName's circuit breaker state as an ordinal
// (0=closed, 1=half-open, 2=open).
func (r *Recorder) SetBreakerState(sinkName string, ordinal int) {
	r.SinkBreakerState.WithLabelValues(sinkName).Set(float64(ordinal))
}

// SetActiveWorkers publishes the worker pool's current live worker count.
func (r *Recorder) SetActiveWorkers(n int) {
	r.ActiveWorkers.Set(float64(n))
}

// SetBatchSize publishes the worker pool's current target batch size.
func (r *Recorder) SetBatchSize(n int) {
	r.BatchSize.Set(float64(n))
}

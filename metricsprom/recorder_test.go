package metricsprom

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestRecorder(t *testing.T) (*Recorder, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRecorderOn(reg, "logpipe_test", ""), reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.Metric {
			total += metricValue(m)
		}
	}
	return total
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return float64(m.Histogram.GetSampleCount())
	default:
		return 0
	}
}

func TestRecorder_IncSubmittedIncrementsByLevel(t *testing.T) {
	r, reg := newTestRecorder(t)
	r.IncSubmitted("INFO")
	r.IncSubmitted("INFO")
	r.IncSubmitted("ERROR")

	if got := counterValue(t, reg, "logpipe_test_messages_submitted_total"); got != 3 {
		t.Errorf("messages_submitted_total = %v, want 3", got)
	}
}

func TestRecorder_IncDrainedAddsN(t *testing.T) {
	r, reg := newTestRecorder(t)
	r.IncDrained("stdout", 7)

	if got := counterValue(t, reg, "logpipe_test_messages_drained_total"); got != 7 {
		t.Errorf("messages_drained_total = %v, want 7", got)
	}
}

func TestRecorder_IncDroppedAndEvicted(t *testing.T) {
	r, reg := newTestRecorder(t)
	r.IncDropped("queue_full")
	r.IncEvicted("INFO")

	if got := counterValue(t, reg, "logpipe_test_messages_dropped_total"); got != 1 {
		t.Errorf("messages_dropped_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "logpipe_test_messages_evicted_total"); got != 1 {
		t.Errorf("messages_evicted_total = %v, want 1", got)
	}
}

func TestRecorder_ObserveFlushLatencyRecordsSample(t *testing.T) {
	r, reg := newTestRecorder(t)
	r.ObserveFlushLatency("redis", 5*time.Millisecond)

	if got := counterValue(t, reg, "logpipe_test_flush_latency_seconds"); got != 1 {
		t.Errorf("flush_latency_seconds sample count = %v, want 1", got)
	}
}

func TestRecorder_GaugesReflectLastSet(t *testing.T) {
	r, reg := newTestRecorder(t)
	r.SetQueueFillRatio(0.42)
	r.SetPressureLevel(2)
	r.SetBreakerState("postgres", 2)
	r.SetActiveWorkers(4)
	r.SetBatchSize(64)

	if got := counterValue(t, reg, "logpipe_test_queue_fill_ratio"); got != 0.42 {
		t.Errorf("queue_fill_ratio = %v, want 0.42", got)
	}
	if got := counterValue(t, reg, "logpipe_test_pressure_level"); got != 2 {
		t.Errorf("pressure_level = %v, want 2", got)
	}
	if got := counterValue(t, reg, "logpipe_test_sink_breaker_state"); got != 2 {
		t.Errorf("sink_breaker_state = %v, want 2", got)
	}
	if got := counterValue(t, reg, "logpipe_test_worker_pool_active_workers"); got != 4 {
		t.Errorf("worker_pool_active_workers = %v, want 4", got)
	}
	if got := counterValue(t, reg, "logpipe_test_worker_pool_batch_size"); got != 64 {
		t.Errorf("worker_pool_batch_size = %v, want 64", got)
	}
}

func TestHandlerFor_ServesMetricsText(t *testing.T) {
	r, reg := newTestRecorder(t)
	r.IncSubmitted("INFO")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "logpipe_test_messages_submitted_total") {
		t.Error("response body missing messages_submitted_total metric")
	}
}

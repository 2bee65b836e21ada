package config

import "testing"

func validCoreConfig() Config {
	return Config{
		Core: CoreConfig{
			MaxQueueSize:      1000,
			MaxQueueGrowth:    4000,
			BatchMaxSize:      50,
			WorkerCount:       2,
			MaxWorkerCount:    8,
			SinkConcurrency:   4,
			RedactionFailMode: "open",
		},
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	cfg := validCoreConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_RejectsNonPositiveQueueSize(t *testing.T) {
	cfg := validCoreConfig()
	cfg.Core.MaxQueueSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for zero max_queue_size")
	}
}

func TestValidate_RejectsGrowthBelowBase(t *testing.T) {
	cfg := validCoreConfig()
	cfg.Core.MaxQueueGrowth = 10
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for max_queue_growth < max_queue_size")
	}
}

func TestValidate_RejectsMaxWorkersBelowBase(t *testing.T) {
	cfg := validCoreConfig()
	cfg.Core.MaxWorkerCount = 1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for max_worker_count < worker_count")
	}
}

func TestValidate_RejectsInvalidRedactionFailMode(t *testing.T) {
	cfg := validCoreConfig()
	cfg.Core.RedactionFailMode = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for invalid redaction_fail_mode")
	}
}

func TestCoreConfig_DurationHelpers(t *testing.T) {
	c := CoreConfig{
		BatchTimeoutSeconds:      0.25,
		ShutdownTimeoutSeconds:   10,
		ErrorDedupeWindowSeconds: 0,
		BackpressureWaitMs:       50,
	}
	if got := c.BatchTimeout(); got.Milliseconds() != 250 {
		t.Errorf("BatchTimeout() = %v, want 250ms", got)
	}
	if got := c.ShutdownTimeout().Seconds(); got != 10 {
		t.Errorf("ShutdownTimeout() = %v, want 10s", got)
	}
	if got := c.ErrorDedupeWindow(); got != 0 {
		t.Errorf("ErrorDedupeWindow() = %v, want 0 (disabled)", got)
	}
	if got := c.BackpressureWait().Milliseconds(); got != 50 {
		t.Errorf("BackpressureWait() = %v, want 50ms", got)
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"4096", 4096},
		{"10 MB", 10 * 1 << 20},
		{"512KB", 512 * 1 << 10},
		{"1GB", 1 << 30},
		{"2B", 2},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if err != nil {
			t.Errorf("ParseSize(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseSize_RejectsGarbage(t *testing.T) {
	if _, err := ParseSize("not-a-size"); err == nil {
		t.Error("ParseSize(\"not-a-size\") = nil error, want error")
	}
}

func TestGetSize_ReadsFromExtrasMap(t *testing.T) {
	m := map[string]any{"max_file_size": "10 MB", "count": 5}
	n, ok := GetSize(m, "max_file_size")
	if !ok || n != 10*1<<20 {
		t.Errorf("GetSize(max_file_size) = (%d, %v), want (%d, true)", n, ok, 10*1<<20)
	}
	if _, ok := GetSize(m, "missing"); ok {
		t.Error("GetSize(missing) = ok true, want false")
	}
}

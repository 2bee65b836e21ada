// Package config implements logpipe's hierarchical configuration surface:
// core.*, adaptive.*, sink_config.<name>.*, redactor_config.<name>.*,
// filter_config.<name>.*, plugins.*, loaded defaults-then-file-then-env.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration tree.
type Config struct {
	Core      CoreConfig                `koanf:"core"`
	Adaptive  AdaptiveConfig            `koanf:"adaptive"`
	Sinks     map[string]map[string]any `koanf:"sink_config"`
	Redactors map[string]map[string]any `koanf:"redactor_config"`
	Filters   map[string]map[string]any `koanf:"filter_config"`
	Plugins   map[string]any            `koanf:"plugins"`
}

// CoreConfig holds the options under the core.* namespace.
type CoreConfig struct {
	MaxQueueSize             int      `koanf:"max_queue_size"`
	MaxQueueGrowth           int      `koanf:"max_queue_growth"`
	BatchMaxSize             int      `koanf:"batch_max_size"`
	BatchTimeoutSeconds      float64  `koanf:"batch_timeout_seconds"`
	DropOnFull               bool     `koanf:"drop_on_full"`
	BackpressureWaitMs       int      `koanf:"backpressure_wait_ms"`
	WorkerCount              int      `koanf:"worker_count"`
	MaxWorkerCount           int      `koanf:"max_worker_count"`
	SinkConcurrency          int      `koanf:"sink_concurrency"`
	ShutdownTimeoutSeconds   float64  `koanf:"shutdown_timeout_seconds"`
	StrictEnvelopeMode       bool     `koanf:"strict_envelope_mode"`
	RedactionFailMode        string   `koanf:"redaction_fail_mode"` // "open" or "closed"
	ErrorDedupeWindowSeconds float64  `koanf:"error_dedupe_window_seconds"`
	ProtectedLevels          []string `koanf:"protected_levels"`
	MinLevel                 string   `koanf:"min_level"`

	SinkCircuitBreakerFailureThreshold int     `koanf:"sink_circuit_breaker_failure_threshold"`
	SinkCircuitBreakerRecoverySeconds  float64 `koanf:"sink_circuit_breaker_recovery_seconds"`
	SinkCircuitBreakerFallbackSink     string  `koanf:"sink_circuit_breaker_fallback_sink"`
}

// AdaptiveConfig mirrors the pressure monitor and actuator gates/thresholds.
type AdaptiveConfig struct {
	Enabled                bool    `koanf:"enabled"`
	CheckIntervalSeconds   float64 `koanf:"check_interval_seconds"`
	CooldownSeconds        float64 `koanf:"cooldown_seconds"`
	CircuitPressureBoost   float64 `koanf:"circuit_pressure_boost"`
	ElevatedThreshold      float64 `koanf:"elevated_threshold"`
	HighThreshold          float64 `koanf:"high_threshold"`
	CriticalThreshold      float64 `koanf:"critical_threshold"`
	ElevatedDeescalate     float64 `koanf:"elevated_deescalate"`
	HighDeescalate         float64 `koanf:"high_deescalate"`
	CriticalDeescalate     float64 `koanf:"critical_deescalate"`

	GateWorkerScaling    bool `koanf:"gate_worker_scaling"`
	GateQueueGrowth      bool `koanf:"gate_queue_growth"`
	GateBatchSizing      bool `koanf:"gate_batch_sizing"`
	GateFilterTightening bool `koanf:"gate_filter_tightening"`
}

// BatchTimeout returns BatchTimeoutSeconds as a time.Duration.
func (c CoreConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSeconds * float64(time.Second))
}

// ShutdownTimeout returns ShutdownTimeoutSeconds as a time.Duration.
func (c CoreConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds * float64(time.Second))
}

// ErrorDedupeWindow returns ErrorDedupeWindowSeconds as a time.Duration; 0
// disables deduplication .
func (c CoreConfig) ErrorDedupeWindow() time.Duration {
	return time.Duration(c.ErrorDedupeWindowSeconds * float64(time.Second))
}

// BackpressureWait returns BackpressureWaitMs as a time.Duration.
func (c CoreConfig) BackpressureWait() time.Duration {
	return time.Duration(c.BackpressureWaitMs) * time.Millisecond
}

// SinkCircuitBreakerRecovery returns the breaker recovery timeout.
func (c CoreConfig) SinkCircuitBreakerRecovery() time.Duration {
	return time.Duration(c.SinkCircuitBreakerRecoverySeconds * float64(time.Second))
}

// Validate checks invariants that must hold before a pipeline can be built
// from this config. Failures are always ConfigError, never a contained
// diagnostic.
func (c *Config) Validate() error {
	if c.Core.MaxQueueSize <= 0 {
		return fmt.Errorf("config: core.max_queue_size must be positive, got %d", c.Core.MaxQueueSize)
	}
	if c.Core.MaxQueueGrowth > 0 && c.Core.MaxQueueGrowth < c.Core.MaxQueueSize {
		return fmt.Errorf("config: core.max_queue_growth (%d) must be >= core.max_queue_size (%d)", c.Core.MaxQueueGrowth, c.Core.MaxQueueSize)
	}
	if c.Core.BatchMaxSize <= 0 {
		return fmt.Errorf("config: core.batch_max_size must be positive, got %d", c.Core.BatchMaxSize)
	}
	if c.Core.WorkerCount <= 0 {
		return fmt.Errorf("config: core.worker_count must be positive, got %d", c.Core.WorkerCount)
	}
	if c.Core.MaxWorkerCount > 0 && c.Core.MaxWorkerCount < c.Core.WorkerCount {
		return fmt.Errorf("config: core.max_worker_count (%d) must be >= core.worker_count (%d)", c.Core.MaxWorkerCount, c.Core.WorkerCount)
	}
	if c.Core.SinkConcurrency <= 0 {
		return fmt.Errorf("config: core.sink_concurrency must be positive, got %d", c.Core.SinkConcurrency)
	}
	switch c.Core.RedactionFailMode {
	case "open", "closed":
	default:
		return fmt.Errorf("config: core.redaction_fail_mode must be \"open\" or \"closed\", got %q", c.Core.RedactionFailMode)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"logpipe/apperror"
)

const (
	// envPrefix includes the trailing "__" since the prefix-to-path
	// boundary uses the same double-underscore separator as the rest of
	// the hierarchy.
	envPrefix    = "LOGPIPE__"
	configEnvVar = "LOGPIPE_CONFIG_PATH"
)

// Loader assembles a Config from defaults, an optional YAML file, and
// environment overrides, in that precedence order (teacher's
// pkg/config.Loader pattern).
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// LoaderOption customizes a Loader before Load runs.
type LoaderOption func(*Loader)

// WithConfigPaths overrides the search paths used to locate a config file
// when LOGPIPE_CONFIG_PATH is unset.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// NewLoader returns a Loader with defaults: search config.yaml,
// config/config.yaml, /etc/logpipe/config.yaml, and the LOGPIPE__ env prefix.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/logpipe/config.yaml",
		},
		envPrefix: envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves defaults, then an optional file, then environment
// variables (highest precedence), unmarshals into a Config, and validates
// it. Validation failures and unmarshal failures are always returned as
// apperror.KindConfig.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "failed to load defaults", err)
	}

	// A config file is optional; its absence is not an error.
	_ = l.loadConfigFile()

	if err := l.loadEnv(); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "failed to load environment overrides", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.KindConfig, "invalid config", err)
	}

	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"core.max_queue_size":             10000,
		"core.max_queue_growth":           40000,
		"core.batch_max_size":             100,
		"core.batch_timeout_seconds":      0.25,
		"core.drop_on_full":               true,
		"core.backpressure_wait_ms":       0,
		"core.worker_count":               2,
		"core.max_worker_count":           16,
		"core.sink_concurrency":           8,
		"core.shutdown_timeout_seconds":   10.0,
		"core.strict_envelope_mode":       false,
		"core.redaction_fail_mode":        "open",
		"core.error_dedupe_window_seconds": 0.0,
		"core.protected_levels":           []string{"ERROR", "CRITICAL", "AUDIT", "SECURITY"},
		"core.min_level":                  "INFO",

		"core.sink_circuit_breaker_failure_threshold": 5,
		"core.sink_circuit_breaker_recovery_seconds":  30.0,
		"core.sink_circuit_breaker_fallback_sink":      "stderr_fallback",

		"adaptive.enabled":                true,
		"adaptive.check_interval_seconds": 0.25,
		"adaptive.cooldown_seconds":       2.0,
		"adaptive.circuit_pressure_boost": 0.20,
		"adaptive.elevated_threshold":     0.60,
		"adaptive.high_threshold":         0.80,
		"adaptive.critical_threshold":     0.92,
		"adaptive.elevated_deescalate":    0.40,
		"adaptive.high_deescalate":        0.60,
		"adaptive.critical_deescalate":    0.75,

		"adaptive.gate_worker_scaling":    true,
		"adaptive.gate_queue_growth":      true,
		"adaptive.gate_batch_sizing":      true,
		"adaptive.gate_filter_tightening": true,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv maps LOGPIPE__CORE__MAX_QUEUE_SIZE -> core.max_queue_size, using
// "__" as the hierarchy separator (explicit convention, diverging from
// koanf's usual single "_" separator; see DESIGN.md).
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, l.envPrefix)
		return strings.ToLower(strings.ReplaceAll(trimmed, "__", "."))
	}), nil)
}

// MustLoad loads configuration and panics on error; intended for simple
// command entry points, not library callers.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// Load is a convenience wrapper around NewLoader().Load().
func Load() (*Config, error) {
	return NewLoader().Load()
}

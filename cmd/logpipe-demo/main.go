// Command logpipe-demo wires a Logger from config, attaches whichever
// sinks the environment enables, logs a short burst of sample events
// across every level, and exits after an explicit drain - the minimal
// host-process shape a service's cmd/main.go follows (load config,
// build dependencies, run, shut down cleanly), without the HTTP server
// loop a real service needs and this demo does not.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	logpipe "logpipe"
	"logpipe/config"
	"logpipe/diagnostics"
	"logpipe/level"
	"logpipe/metricsprom"
	"logpipe/pipeline"
	"logpipe/sink"
	"logpipe/sinks/filesink"
	"logpipe/sinks/httpsink"
	"logpipe/sinks/redissink"
	"logpipe/sinks/stdoutsink"
)

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logpipe-demo: failed to load config: %v\n", err)
		os.Exit(1)
	}

	diag := diagnostics.New(diagnostics.NewSlogLogger(diagnostics.SlogConfig{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}), 50, 20)

	sinks := buildSinks()

	recorder := metricsprom.NewRecorder("logpipe", "demo")
	startMetricsServer(":9090")

	logger, err := logpipe.Get("demo", cfg,
		logpipe.WithDiagnostics(diag),
		logpipe.WithMetrics(recorder),
		logpipe.WithSinks(sinks...),
		logpipe.WithEnrichers(pipeline.NewKubernetesEnricher(), pipeline.NewRuntimeEnricher()),
		logpipe.WithRedactors(pipeline.NewFieldMaskRedactor([]string{"password", "token"})),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logpipe-demo: failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "logpipe-demo: failed to start logger: %v\n", err)
		os.Exit(1)
	}

	emitSampleEvents(logger)

	time.Sleep(200 * time.Millisecond)

	for name, report := range healthSnapshot(logger) {
		slog.Info("sink health", "sink", name, "checked", report.Checked, "err", report.Err)
	}

	result := logger.Drain(context.Background())
	slog.Info("drained", "messages_drained", result.MessagesDrained, "timed_out", result.TimedOut, "errors", len(result.Errors))
}

func buildSinks() []sink.Sink {
	out := []sink.Sink{stdoutsink.New("stdout")}

	if path := os.Getenv("LOGPIPE_DEMO_FILE_PATH"); path != "" {
		out = append(out, filesink.New("file", filesink.Config{Path: path, MaxSizeMB: 50, MaxBackups: 3, Compress: true}))
	}
	if addr := os.Getenv("LOGPIPE_DEMO_REDIS_ADDR"); addr != "" {
		out = append(out, redissink.New("redis", redissink.Config{
			Addr:   addr,
			Key:    "logpipe:demo:events",
			MaxLen: 10000,
		}))
	}
	if url := os.Getenv("LOGPIPE_DEMO_WEBHOOK_URL"); url != "" {
		out = append(out, httpsink.New("webhook", httpsink.Config{
			URL:          url,
			BearerSecret: os.Getenv("LOGPIPE_DEMO_WEBHOOK_SECRET"),
			BearerIssuer: "logpipe-demo",
		}))
	}
	return out
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}

func emitSampleEvents(l *logpipe.Logger) {
	bound := l.Bind(map[string]any{"component": "logpipe-demo"})

	bound.Trace("tracing request lifecycle", map[string]any{"step": "start"})
	bound.Debug("resolved routing table", map[string]any{"routes": 3})
	bound.Info("request handled", map[string]any{"duration_ms": 12})
	bound.Warning("retrying downstream call", map[string]any{"attempt": 2})
	bound.Error("downstream call failed", map[string]any{"attempt": 3})
	bound.Critical("downstream unavailable", map[string]any{"attempt": 4})
	bound.Audit("configuration reloaded", map[string]any{"source": "demo"})
	bound.Security("authentication failed", map[string]any{"user": "demo"})

	bound.LogSensitive(level.Info, "processed payment", map[string]any{"order_id": "o-123"},
		map[string]any{"card_number": "4242424242424242"})
}

func healthSnapshot(l *logpipe.Logger) map[string]logpipe.HealthReport {
	reports := l.CheckHealth(context.Background())
	out := make(map[string]logpipe.HealthReport, len(reports))
	for _, r := range reports {
		out[r.SinkName] = r
	}
	return out
}

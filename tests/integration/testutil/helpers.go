// Package testutil holds the environment-gating helpers shared by
// logpipe's integration test suite: opt-in skip behavior rather than
// failing a CI run that has no real Redis or Postgres to talk to.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"
)

// Environment variables gating integration tests.
const (
	EnvIntegrationTests = "INTEGRATION_TESTS"
	EnvRedisAddr        = "REDIS_TEST_ADDR"
	EnvPostgresDSN      = "POSTGRES_TEST_DSN"
)

// SkipIfNotIntegration skips the calling test unless INTEGRATION_TESTS=1
// is set, keeping the suite out of a plain `go test ./...` run.
func SkipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationTests) != "1" {
		t.Skip("skipping integration test; set INTEGRATION_TESTS=1 to run")
	}
}

// RequireRedis skips unless integration mode is on and REDIS_TEST_ADDR
// points at a reachable server, returning the address.
func RequireRedis(t *testing.T) string {
	t.Helper()
	SkipIfNotIntegration(t)

	addr := os.Getenv(EnvRedisAddr)
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	conn.Close()

	return addr
}

// RequirePostgres skips unless integration mode is on and
// POSTGRES_TEST_DSN is set, returning the DSN.
func RequirePostgres(t *testing.T) string {
	t.Helper()
	SkipIfNotIntegration(t)

	dsn := os.Getenv(EnvPostgresDSN)
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	return dsn
}

// PostgresConnFields are the discrete pgsink.Config fields a test needs,
// with sensible local-docker defaults.
type PostgresConnFields struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// PostgresTestFields returns connection fields for the test Postgres
// instance, overridable via POSTGRES_HOST/POSTGRES_PORT/POSTGRES_DB/
// POSTGRES_USER/POSTGRES_PASSWORD.
func PostgresTestFields() PostgresConnFields {
	return PostgresConnFields{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvIntOrDefault("POSTGRES_PORT", 5432),
		Database: getEnvOrDefault("POSTGRES_DB", "logpipe_test"),
		Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
		SSLMode:  "disable",
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

// Context returns a context bounded to a generous timeout for a full
// Logger start/log/drain cycle against a real backend.
func Context(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 30*time.Second)
}

//go:build integration

package integration_test

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	logpipe "logpipe"
	"logpipe/config"
	"logpipe/sinks/pgsink"
	"logpipe/tests/integration/testutil"
)

var nonWordChars = regexp.MustCompile(`\W+`)

func TestLogger_DrainsIntoPostgresTable(t *testing.T) {
	testutil.RequirePostgres(t)
	fields := testutil.PostgresTestFields()
	ctx, cancel := testutil.Context(t)
	defer cancel()

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		fields.Username, fields.Password, fields.Host, fields.Port, fields.Database, fields.SSLMode)

	setupPool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	defer setupPool.Close()

	table := "logpipe_integration_" + nonWordChars.ReplaceAllString(t.Name(), "_")
	_, err = setupPool.Exec(ctx, "DROP TABLE IF EXISTS "+table)
	require.NoError(t, err)
	_, err = setupPool.Exec(ctx, "CREATE TABLE "+table+
		" (message_id text, ts timestamptz, level text, logger_name text, message text, context jsonb, data jsonb)")
	require.NoError(t, err)
	t.Cleanup(func() { setupPool.Exec(ctx, "DROP TABLE IF EXISTS "+table) })

	sink := pgsink.New("postgres", pgsink.Config{
		Host:     fields.Host,
		Port:     fields.Port,
		Database: fields.Database,
		Username: fields.Username,
		Password: fields.Password,
		SSLMode:  fields.SSLMode,
		Table:    table,
	})

	cfg := &config.Config{Core: config.CoreConfig{
		MaxQueueSize:           100,
		BatchMaxSize:           10,
		BatchTimeoutSeconds:    0.05,
		WorkerCount:            1,
		ShutdownTimeoutSeconds: 5,
		RedactionFailMode:      "open",
		MinLevel:               "INFO",
		ProtectedLevels:        []string{"ERROR", "CRITICAL", "AUDIT", "SECURITY"},
	}}

	l, err := logpipe.NewUncached("integration-postgres", cfg, logpipe.WithSinks(sink))
	require.NoError(t, err)
	require.NoError(t, l.Start(ctx))

	const submitted = 6
	for i := 0; i < submitted; i++ {
		l.Info("integration event", map[string]any{"i": i})
	}

	result := l.Drain(ctx)
	require.False(t, result.TimedOut)
	require.EqualValues(t, submitted, result.MessagesDrained)

	var count int64
	require.NoError(t, setupPool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&count))
	require.EqualValues(t, submitted, count)
}

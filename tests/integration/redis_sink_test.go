//go:build integration

package integration_test

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	logpipe "logpipe"
	"logpipe/config"
	"logpipe/sinks/redissink"
	"logpipe/tests/integration/testutil"
)

func TestLogger_DrainsIntoRedisList(t *testing.T) {
	addr := testutil.RequireRedis(t)
	ctx, cancel := testutil.Context(t)
	defer cancel()

	key := "logpipe:integration:" + t.Name()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Del(ctx, key); client.Close() })

	sink := redissink.New("redis", redissink.Config{Addr: addr, Key: key})

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

	l, err := logpipe.NewUncached("integration-redis", cfg, logpipe.WithSinks(sink))
	require.NoError(t, err)
	require.NoError(t, l.Start(ctx))

	const submitted = 8
	for i := 0; i < submitted; i++ {
		l.Info("integration event", map[string]any{"i": i})
	}

	result := l.Drain(ctx)
	require.False(t, result.TimedOut)
	require.EqualValues(t, submitted, result.MessagesDrained)

	length, err := client.LLen(ctx, key).Result()
	require.NoError(t, err)
	require.EqualValues(t, submitted, length)
}

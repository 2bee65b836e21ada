// Package redissink pushes serialized events onto a Redis list using
// go-redis's client construction and pipelining, as a bounded
// append-only event buffer that a downstream consumer drains rather
// than a read-through cache.
package redissink

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"logpipe/envelope"
	"logpipe/retry"
)

// Config controls the Redis connection and the target list.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// Key is the list the sink RPUSHes serialized events onto.
	Key string
	// MaxLen caps the list length via LTRIM after each push; 0 means
	// unbounded.
	MaxLen int64

	RetryPolicy retry.Policy
}

// Sink pushes one serialized event per Write call onto a Redis list,
// trimming it to MaxLen in the same pipelined round trip.
type Sink struct {
	name   string
	client *redis.Client
	cfg    Config
}

// New constructs a Sink named name. It does not connect; Start pings the
// server and surfaces connection failures at startup rather than on the
// first log call.
func New(name string, cfg Config) *Sink {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	if cfg.RetryPolicy == (retry.Policy{}) {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})
	return &Sink{name: name, client: client, cfg: cfg}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redissink: ping failed: %w", err)
	}
	return nil
}

func (s *Sink) Stop(ctx context.Context) error {
	return s.client.Close()
}

func (s *Sink) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	data, err := envelope.Serialize(e)
	if err != nil {
		return false, err
	}
	return s.WriteSerialized(ctx, e, data)
}

// WriteSerialized pushes data onto the configured list and trims it to
// MaxLen in one pipelined call, retried per RetryPolicy since a
// transient connection blip should not drop the event.
func (s *Sink) WriteSerialized(ctx context.Context, e *envelope.Event, data []byte) (bool, error) {
	line := bytes.TrimSuffix(data, []byte("\n"))
	err := retry.Do(ctx, s.cfg.RetryPolicy, func() error {
		pipe := s.client.Pipeline()
		pipe.RPush(ctx, s.cfg.Key, line)
		if s.cfg.MaxLen > 0 {
			pipe.LTrim(ctx, s.cfg.Key, -s.cfg.MaxLen, -1)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck pings the Redis server.
func (s *Sink) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

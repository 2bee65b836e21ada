// Package pgsink writes events into a Postgres table via pgxpool, using
// CopyFrom for a single-table batch event writer rather than
// row-by-row inserts.
package pgsink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logpipe/envelope"
	"logpipe/retry"
)

// Config controls the Postgres connection and target table.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	MaxConns int32

	// Table is the destination table, expected to have columns
	// (message_id, ts, level, logger_name, message, context, data) with
	// context/data as jsonb.
	Table string

	RetryPolicy retry.Policy
}

func (c Config) connString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// dbPool is the narrow subset of *pgxpool.Pool the sink actually calls,
// so tests can substitute a pgxmock pool without touching a real
// database.
type dbPool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Sink inserts events into a single Postgres table via CopyFrom: Write
// copies one row per call, WriteBatch copies a whole slice in one COPY.
type Sink struct {
	name string
	cfg  Config
	pool dbPool
}

// New constructs a Sink named name. It does not connect; Start opens and
// pings the pool.
func New(name string, cfg Config) *Sink {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.RetryPolicy == (retry.Policy{}) {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}
	return &Sink{name: name, cfg: cfg}
}

// WithPool overrides the connection pool, used by tests to inject a
// pgxmock pool instead of dialing a real database.
func (s *Sink) WithPool(p dbPool) *Sink {
	s.pool = p
	return s
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Start(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(s.cfg.connString())
	if err != nil {
		return fmt.Errorf("pgsink: parse connection string: %w", err)
	}
	if s.cfg.MaxConns > 0 {
		poolConfig.MaxConns = s.cfg.MaxConns
	}
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("pgsink: create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("pgsink: ping: %w", err)
	}
	s.pool = pool
	return nil
}

func (s *Sink) Stop(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Write inserts a single event. Sinks are written one event at a time by
// sink.Group; pgsink still uses CopyFrom for a single row rather than a
// plain INSERT, so the code path matches WriteBatch's.
func (s *Sink) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	n, err := s.WriteBatch(ctx, []*envelope.Event{e})
	return n == 1, err
}

// WriteBatch inserts every event in one CopyFrom round trip, retried as a
// whole per RetryPolicy on a transient connection failure.
func (s *Sink) WriteBatch(ctx context.Context, events []*envelope.Event) (int, error) {
	rows, err := retry.DoValue(ctx, s.cfg.RetryPolicy, func() (int64, error) {
		return s.pool.CopyFrom(ctx,
			pgx.Identifier{s.cfg.Table},
			[]string{"message_id", "ts", "level", "logger_name", "message", "context", "data"},
			pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
				e := events[i]
				return []any{
					e.MessageID,
					e.Timestamp,
					e.Level.Name(),
					e.LoggerName,
					e.Message,
					map[string]any(e.Context),
					map[string]any(e.Data),
				}, nil
			}),
		)
	})
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// HealthCheck runs a trivial round trip against the pool.
func (s *Sink) HealthCheck(ctx context.Context) error {
	var result int
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.pool.QueryRow(checkCtx, "SELECT 1").Scan(&result)
}

// Package grpcsink delivers events to a gRPC ingest endpoint over an
// insecure connection with a retry interceptor chained on (each call is
// bounded by a context timeout), sending the already-serialized event bytes through a
// raw passthrough codec instead of a generated protobuf message, since
// no ingest service definition ships with this sink.
package grpcsink

import (
	"context"
	"fmt"
	"time"

	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"

	"logpipe/envelope"
)

// Config controls the target endpoint and the ingest RPC's full method
// name, e.g. "/logpipe.Ingest/WriteEvent".
type Config struct {
	Address      string
	Method       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Sink forwards events to a gRPC endpoint over a single shared
// connection, one unary call per event.
type Sink struct {
	name string
	cfg  Config
	conn *grpc.ClientConn
}

// New constructs a Sink named name. It does not dial; Start does.
func New(name string, cfg Config) *Sink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	return &Sink{name: name, cfg: cfg}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Start(ctx context.Context) error {
	retryOpts := []grpc_retry.CallOption{
		grpc_retry.WithBackoff(grpc_retry.BackoffLinear(s.cfg.RetryBackoff)),
		grpc_retry.WithCodes(codes.Unavailable, codes.Aborted, codes.DeadlineExceeded),
		grpc_retry.WithMax(uint(s.cfg.MaxRetries)),
	}

	conn, err := grpc.NewClient(s.cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(grpc_retry.UnaryClientInterceptor(retryOpts...)),
	)
	if err != nil {
		return fmt.Errorf("grpcsink: dial: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *Sink) Stop(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Sink) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	data, err := envelope.Serialize(e)
	if err != nil {
		return false, err
	}
	return s.WriteSerialized(ctx, e, data)
}

// WriteSerialized invokes the configured ingest RPC with data as the raw
// request body, bounded by Timeout.
func (s *Sink) WriteSerialized(ctx context.Context, e *envelope.Event, data []byte) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req := data
	var resp []byte
	err := s.conn.Invoke(callCtx, s.cfg.Method, &req, &resp, grpc.CallContentSubtype(rawBytesCodecName))
	if err != nil {
		return false, fmt.Errorf("grpcsink: invoke %s: %w", s.cfg.Method, err)
	}
	return true, nil
}

// HealthCheck reports the connection's current readiness state.
func (s *Sink) HealthCheck(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("grpcsink: not started")
	}
	state := s.conn.GetState()
	if state.String() == "TRANSIENT_FAILURE" {
		return fmt.Errorf("grpcsink: connection state %s", state)
	}
	return nil
}

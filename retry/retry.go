// Package retry wraps cenkalti/backoff/v5 with the retry policy shape
// used by logpipe's webhook, Postgres and Redis sinks (the gRPC sink
// uses a gRPC retry interceptor instead): bounded attempts, exponential backoff with jitter, and a
// hard ceiling on total elapsed time so a single flush never stalls a
// worker indefinitely.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures one retry run.
type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy mirrors a typical gRPC client's retry defaults (bounded
// retries, capped backoff) generalized across all network sinks.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Do runs op under the given policy, retrying on any non-nil error,
// until success, ctx cancellation, or the policy's attempt/time budget
// is exhausted.
func Do(ctx context.Context, p Policy, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, backoff.WithBackOff(newExponential(p)), withLimits(p)...)
	return err
}

// DoValue is Do's generic counterpart for operations that return a
// value alongside an error (sinks that need a write acknowledgement).
func DoValue[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op, backoff.WithBackOff(newExponential(p)), withLimits(p)...)
}

func newExponential(p Policy) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

func withLimits(p Policy) []backoff.RetryOption {
	opts := make([]backoff.RetryOption, 0, 2)
	if p.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(p.MaxAttempts))
	}
	if p.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsedTime))
	}
	return opts
}

// Package stdoutsink writes events as compact JSON lines to an
// io.Writer, stdout by default. It is the simplest sink: no
// connection, no retries, no health check beyond "the write succeeded".
package stdoutsink

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"logpipe/envelope"
)

// Sink writes one JSON line per event to Writer.
type Sink struct {
	name   string
	Writer io.Writer

	mu sync.Mutex
}

// New returns a Sink named name writing to os.Stdout. Use WithWriter to
// redirect it, typically in tests.
func New(name string) *Sink {
	return &Sink{name: name, Writer: os.Stdout}
}

// WithWriter overrides the destination writer.
func (s *Sink) WithWriter(w io.Writer) *Sink {
	s.Writer = w
	return s
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Start(ctx context.Context) error { return nil }
func (s *Sink) Stop(ctx context.Context) error  { return nil }

func (s *Sink) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	data, err := envelope.Serialize(e)
	if err != nil {
		return false, err
	}
	return s.WriteSerialized(ctx, e, data)
}

// WriteSerialized implements sink.SerializedWriter, skipping a redundant
// re-encode when the caller already serialized the event for another sink.
func (s *Sink) WriteSerialized(ctx context.Context, e *envelope.Event, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.Writer.Write(append(bytes.TrimSuffix(data, []byte("\n")), '\n')); err != nil {
		return false, err
	}
	return true, nil
}

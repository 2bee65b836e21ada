// Package filesink writes events as JSON lines to a local file with
// size-based rotation, delegating the rotation policy to lumberjack
// instead of reimplementing log rotation by hand.
package filesink

import (
	"bytes"
	"context"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"logpipe/envelope"
)

// Config controls rotation. Zero values fall back to lumberjack's own
// defaults (100MB max size, no age/backup limit, no compression).
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Sink appends one JSON line per event to a rotating file.
type Sink struct {
	name string
	rot  *lumberjack.Logger

	mu sync.Mutex
}

// New returns a Sink named name writing to cfg.Path.
func New(name string, cfg Config) *Sink {
	return &Sink{
		name: name,
		rot: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) Start(ctx context.Context) error { return nil }

// Stop closes the underlying rotating file, flushing any buffered OS-level
// write and releasing the file handle.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rot.Close()
}

func (s *Sink) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	data, err := envelope.Serialize(e)
	if err != nil {
		return false, err
	}
	return s.WriteSerialized(ctx, e, data)
}

// WriteSerialized implements sink.SerializedWriter.
func (s *Sink) WriteSerialized(ctx context.Context, e *envelope.Event, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.rot.Write(append(bytes.TrimSuffix(data, []byte("\n")), '\n')); err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck reports the sink healthy as long as it holds a rotation
// policy; lumberjack opens the file lazily on first write and has no
// separate "is the file reachable" probe.
func (s *Sink) HealthCheck(ctx context.Context) error {
	return nil
}

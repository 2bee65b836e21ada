package sink

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"logpipe/envelope"
)

// secretKeySubstrings is the minimal key-name pattern match the stderr
// fallback applies before writing; not a substitute for the configured
// redaction stages, just a last-resort scrub so a misconfigured pipeline
// doesn't dump obvious secrets to a shared stderr stream.
var secretKeySubstrings = []string{
	"password", "passwd", "secret", "token", "apikey", "api_key",
	"access_key", "private_key", "credential", "auth",
}

// StderrFallback is the built-in last-resort sink: always available,
// never circuit-broken, scrubs known-sensitive key names before writing
// compact JSON to its writer (stderr by default).
type StderrFallback struct {
	Writer io.Writer

	mu sync.Mutex
}

func NewStderrFallback() *StderrFallback {
	return &StderrFallback{Writer: os.Stderr}
}

func (s *StderrFallback) Name() string { return "stderr-fallback" }

func (s *StderrFallback) Start(ctx context.Context) error { return nil }
func (s *StderrFallback) Stop(ctx context.Context) error  { return nil }

func (s *StderrFallback) Write(ctx context.Context, e *envelope.Event) (bool, error) {
	scrubbed := e.Clone()
	scrubKeys(scrubbed.Data)
	scrubKeys(scrubbed.Context)
	scrubKeys(scrubbed.Diagnostics)

	data, err := envelope.Serialize(scrubbed)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.Writer.Write(append(data, '\n')); err != nil {
		return false, err
	}
	return true, nil
}

func scrubKeys(m envelope.Map) {
	if m == nil {
		return
	}
	for k, v := range m {
		if looksSecret(k) {
			m[k] = "***"
			continue
		}
		switch vv := v.(type) {
		case envelope.Map:
			scrubKeys(vv)
		case map[string]envelope.Value:
			scrubKeys(envelope.Map(vv))
		}
	}
}

func looksSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range secretKeySubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

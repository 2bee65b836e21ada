// Package httpsink delivers events to an HTTP webhook endpoint as a
// compact JSON body, retried per-request the way a resilient service
// client retries transient failures, with an optional bearer token
// minted fresh per request the way a JWT signer issues short-lived
// tokens instead of sending a long-lived static secret.
package httpsink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"logpipe/envelope"
	"logpipe/retry"
)

// Config controls the webhook endpoint and optional bearer auth.
type Config struct {
	URL     string
	Timeout time.Duration

	// BearerSecret, if non-empty, causes the sink to mint and attach a
	// short-lived HS256 bearer token to every request instead of
	// sending a static one, so a leaked request body never carries a
	// long-lived credential.
	BearerSecret string
	BearerIssuer string
	BearerTTL    time.Duration

	RetryPolicy retry.Policy

	Client *http.Client
}

// Sink POSTs one serialized event per Write call to a webhook URL.
type Sink struct {
	name   string
	cfg    Config
	client *http.Client
}

// New constructs a Sink named name.
func New(name string, cfg Config) *Sink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BearerTTL <= 0 {
		cfg.BearerTTL = time.Minute
	}
	if cfg.RetryPolicy == (retry.Policy{}) {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Sink{name: name, cfg: cfg, client: client}
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

// WriteSerialized POSTs data to the configured URL, retried per
// RetryPolicy. A non-2xx response is treated as a retryable failure.
func (s *Sink) WriteSerialized(ctx context.Context, e *envelope.Event, data []byte) (bool, error) {
	token, err := s.bearerToken()
	if err != nil {
		return false, err
	}

	err = retry.Do(ctx, s.cfg.RetryPolicy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("httpsink: unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Sink) bearerToken() (string, error) {
	if s.cfg.BearerSecret == "" {
		return "", nil
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.BearerIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.BearerTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.BearerSecret))
	if err != nil {
		return "", fmt.Errorf("httpsink: sign bearer token: %w", err)
	}
	return signed, nil
}

// HealthCheck issues a HEAD request against the configured URL.
func (s *Sink) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("httpsink: health check status %d", resp.StatusCode)
	}
	return nil
}

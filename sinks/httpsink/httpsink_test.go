package httpsink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"logpipe/envelope"
	"logpipe/level"
)

func sampleEvent() *envelope.Event {
	reg := level.NewRegistry()
	reg.Freeze()
	info, _ := reg.Lookup("info")
	b := envelope.NewBuilder("test", envelope.OriginNative)
	return b.Build(info, "hello", nil, envelope.Map{"k": "v"}, nil)
}

func TestWrite_PostsEventBody(t *testing.T) {
	var received atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Store(true)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New("webhook", Config{URL: srv.URL})
	ok, err := s.Write(context.Background(), sampleEvent())
	if err != nil || !ok {
		t.Fatalf("Write() = %v, %v; want true, nil", ok, err)
	}
	if !received.Load() {
		t.Error("server never received a request")
	}
}

func TestWrite_RetriesOn5xxThenFails(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := Config{URL: srv.URL}
	cfg.RetryPolicy.MaxAttempts = 2
	s := New("webhook", cfg)

	ok, err := s.Write(context.Background(), sampleEvent())
	if err == nil || ok {
		t.Fatalf("Write() = %v, %v; want false, error", ok, err)
	}
	if attempts.Load() < 2 {
		t.Errorf("attempts = %d, want at least 2", attempts.Load())
	}
}

func TestWrite_AttachesSignedBearerToken(t *testing.T) {
	secret := "test-secret"
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New("webhook", Config{URL: srv.URL, BearerSecret: secret, BearerIssuer: "logpipe"})
	if _, err := s.Write(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(gotAuth) < len("Bearer ") || gotAuth[:7] != "Bearer " {
		t.Fatalf("Authorization header = %q, want Bearer-prefixed", gotAuth)
	}
	tokenStr := gotAuth[7:]
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("ParseWithClaims: %v", err)
	}
	if claims.Issuer != "logpipe" {
		t.Errorf("Issuer = %q, want logpipe", claims.Issuer)
	}
}

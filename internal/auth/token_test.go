package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sveahq/bolagsagent/internal/observability"
)

func newTokenServer(t *testing.T, calls *int32, expiresIn int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "id-1" {
			t.Errorf("client_id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}))
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		Scope:        "vardefulla-datamangder:read",
	})

	for i := 0; i < 5; i++ {
		tok, err := m.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "tok-abc" {
			t.Fatalf("token = %q", tok)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("exchange count = %d, want 1", n)
	}
}

func TestTokenRefreshesInsideMargin(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "secret-1",
	})

	base := time.Now()
	m.now = func() time.Time { return base }

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	// Just before the margin window: still cached.
	m.now = func() time.Time { return base.Add(3600*time.Second - 61*time.Second) }
	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("exchange count = %d, want 1", n)
	}

	// Inside the margin window: refreshed.
	m.now = func() time.Time { return base.Add(3600*time.Second - 30*time.Second) }
	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("exchange count = %d, want 2", n)
	}
}

func TestTokenConcurrentCallersSingleExchange(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "secret-1",
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Token(context.Background()); err != nil {
				t.Errorf("Token: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("exchange count = %d, want 1", n)
	}
}

func TestTokenMissingCredentials(t *testing.T) {
	m := NewTokenManager(Config{TokenURL: "http://127.0.0.1:1/token"})

	_, err := m.Token(context.Background())
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("error type = %T, want *CredentialError", err)
	}
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("error = %v, want ErrMissingCredentials", err)
	}
}

func TestTokenExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "wrong",
	})

	_, err := m.Token(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected exchange")
	}
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("error type = %T, want *CredentialError", err)
	}
}

func TestInvalidateForcesRefresh(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "secret-1",
	})

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	m.Invalidate()
	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("exchange count = %d, want 2", n)
	}
}

func TestTokenExchangeRecordsMetrics(t *testing.T) {
	var calls int32
	srv := newTokenServer(t, &calls, 3600)
	defer srv.Close()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		Metrics:      metrics,
	})

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	// Cached call, no second exchange to count.
	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	if got := testutil.ToFloat64(metrics.TokenRefreshCounter.WithLabelValues("success")); got != 1 {
		t.Errorf("success exchanges = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.TokenRefreshCounter.WithLabelValues("error")); got != 0 {
		t.Errorf("failed exchanges = %v, want 0", got)
	}
}

func TestFailedExchangeRecordsErrorMetric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusInternalServerError)
	}))
	defer srv.Close()

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	m := NewTokenManager(Config{
		TokenURL:     srv.URL,
		ClientID:     "id-1",
		ClientSecret: "secret-1",
		Metrics:      metrics,
	})

	if _, err := m.Token(context.Background()); err == nil {
		t.Fatal("expected exchange error")
	}
	if got := testutil.ToFloat64(metrics.TokenRefreshCounter.WithLabelValues("error")); got != 1 {
		t.Errorf("failed exchanges = %v, want 1", got)
	}
}

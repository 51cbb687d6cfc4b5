package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestFailureReasonIsRetryable(t *testing.T) {
	tests := []struct {
		reason    FailureReason
		retryable bool
	}{
		{FailureRateLimit, true},
		{FailureTimeout, true},
		{FailureOverloaded, true},
		{FailureServerError, true},
		{FailureAuth, false},
		{FailureInvalidRequest, false},
		{FailureUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.reason.IsRetryable(); got != tt.retryable {
			t.Errorf("%s: expected retryable=%v, got %v", tt.reason, tt.retryable, got)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		reason FailureReason
	}{
		{nil, FailureUnknown},
		{errors.New("context deadline exceeded"), FailureTimeout},
		{errors.New("429 too many requests"), FailureRateLimit},
		{errors.New("overloaded_error: try again"), FailureOverloaded},
		{errors.New("401 unauthorized"), FailureAuth},
		{errors.New("invalid api key"), FailureAuth},
		{errors.New("503 service unavailable"), FailureServerError},
		{errors.New("connection refused"), FailureServerError},
		{errors.New("something odd"), FailureUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.reason {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.reason, got)
		}
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status int
		reason FailureReason
	}{
		{http.StatusUnauthorized, FailureAuth},
		{http.StatusForbidden, FailureAuth},
		{http.StatusTooManyRequests, FailureRateLimit},
		{http.StatusBadRequest, FailureInvalidRequest},
		{529, FailureOverloaded},
		{http.StatusInternalServerError, FailureServerError},
		{http.StatusBadGateway, FailureServerError},
		{http.StatusOK, FailureUnknown},
	}
	for _, tt := range tests {
		if got := classifyStatusCode(tt.status); got != tt.reason {
			t.Errorf("status %d: expected %s, got %s", tt.status, tt.reason, got)
		}
	}
}

func TestProviderErrorFormat(t *testing.T) {
	err := NewProviderError("anthropic", "claude-sonnet-4-20250514", errors.New("boom")).
		WithStatus(http.StatusTooManyRequests).
		WithCode("rate_limit_error").
		WithRequestID("req_123")

	msg := err.Error()
	for _, want := range []string{"rate_limit", "anthropic", "model=claude-sonnet-4-20250514", "status=429", "code=rate_limit_error"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if err.Reason != FailureRateLimit {
		t.Errorf("expected rate_limit reason, got %s", err.Reason)
	}
	if err.RequestID != "req_123" {
		t.Errorf("expected request ID, got %q", err.RequestID)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewProviderError("anthropic", "m", fmt.Errorf("wrapped: %w", cause))
	if !errors.Is(err, cause) {
		t.Error("expected cause in error chain")
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := NewProviderError("anthropic", "m", errors.New("x")).WithStatus(http.StatusServiceUnavailable)
	if !IsRetryable(retryable) {
		t.Error("server errors should be retryable")
	}

	permanent := NewProviderError("anthropic", "m", errors.New("x")).WithStatus(http.StatusUnauthorized)
	if IsRetryable(permanent) {
		t.Error("auth errors should not be retryable")
	}

	// Raw errors fall back to string classification.
	if !IsRetryable(errors.New("request timeout")) {
		t.Error("timeouts should be retryable")
	}
	if IsRetryable(errors.New("invalid api key")) {
		t.Error("auth failures should not be retryable")
	}
}

func TestGetProviderError(t *testing.T) {
	inner := NewProviderError("anthropic", "m", errors.New("x"))
	wrapped := fmt.Errorf("outer: %w", inner)

	got, ok := GetProviderError(wrapped)
	if !ok || got != inner {
		t.Errorf("expected to extract provider error, got %v ok=%v", got, ok)
	}

	if _, ok := GetProviderError(errors.New("plain")); ok {
		t.Error("plain error should not yield a provider error")
	}
}

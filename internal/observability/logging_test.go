package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerRedactsClientSecret(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	logger.Info(context.Background(), "token exchange", "detail", "client_secret=supersecretvalue123")

	out := buf.String()
	if strings.Contains(out, "supersecretvalue123") {
		t.Errorf("secret leaked into log output: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker in output: %s", out)
	}
}

func TestLoggerRedactsBearerToken(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	err := errors.New("upstream rejected: Bearer abcdefghijklmnopqrstuvwxyz012345")
	logger.Error(context.Background(), "request failed", "error", err)

	if strings.Contains(buf.String(), "abcdefghijklmnopqrstuvwxyz012345") {
		t.Errorf("bearer token leaked: %s", buf.String())
	}
}

func TestLoggerRedactsSensitiveMapKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	logger.Info(context.Background(), "config loaded", "auth", map[string]any{
		"client_secret": "hemligt-varde",
		"token_url":     "https://portal.api.bolagsverket.se/oauth2/token",
	})

	out := buf.String()
	if strings.Contains(out, "hemligt-varde") {
		t.Errorf("map value leaked: %s", out)
	}
	if !strings.Contains(out, "portal.api.bolagsverket.se") {
		t.Errorf("non-sensitive value dropped: %s", out)
	}
}

func TestLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf})

	ctx := AddRequestID(context.Background(), "req-42")
	ctx = AddSessionID(ctx, "sess-9")
	logger.Info(ctx, "hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["request_id"] != "req-42" {
		t.Errorf("request_id missing: %v", record)
	}
	if record["session_id"] != "sess-9" {
		t.Errorf("session_id missing: %v", record)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info(context.Background(), "should not appear")
	if buf.Len() != 0 {
		t.Errorf("info record emitted at warn level: %s", buf.String())
	}

	logger.Warn(context.Background(), "should appear")
	if buf.Len() == 0 {
		t.Error("warn record suppressed")
	}
}

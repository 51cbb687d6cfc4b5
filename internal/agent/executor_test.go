package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sveahq/bolagsagent/pkg/models"
)

func TestExecuteAllPreservesOrder(t *testing.T) {
	r := NewRegistry()
	tool := &fakeTool{
		name: "echo",
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			var in struct {
				N int `json:"n"`
			}
			_ = json.Unmarshal(params, &in)
			// Later calls finish first to surface ordering bugs.
			time.Sleep(time.Duration(10-in.N) * time.Millisecond)
			return &ToolResult{Content: fmt.Sprintf("result %d", in.N)}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e := NewExecutor(r, nil)
	var calls []models.ToolCall
	for i := 0; i < 8; i++ {
		calls = append(calls, models.ToolCall{
			ID:    fmt.Sprintf("call_%d", i),
			Name:  "echo",
			Input: json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		})
	}

	results := e.ExecuteAll(context.Background(), calls)
	if len(results) != len(calls) {
		t.Fatalf("expected %d results, got %d", len(calls), len(results))
	}
	for i, res := range results {
		if res.ToolCallID != calls[i].ID {
			t.Errorf("position %d: expected %s, got %s", i, calls[i].ID, res.ToolCallID)
		}
		if res.Error != nil {
			t.Errorf("position %d: unexpected error %v", i, res.Error)
			continue
		}
		want := fmt.Sprintf("result %d", i)
		if res.Result.Content != want {
			t.Errorf("position %d: expected %q, got %q", i, want, res.Result.Content)
		}
	}
}

func TestExecuteAllBoundsConcurrency(t *testing.T) {
	var active, peak int32
	r := NewRegistry()
	tool := &fakeTool{
		name: "slow",
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			cur := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return &ToolResult{Content: "done"}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e := NewExecutor(r, &ExecutorConfig{MaxConcurrency: 2, DefaultTimeout: time.Second})
	var calls []models.ToolCall
	for i := 0; i < 6; i++ {
		calls = append(calls, models.ToolCall{ID: fmt.Sprintf("call_%d", i), Name: "slow"})
	}

	e.ExecuteAll(context.Background(), calls)
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("expected at most 2 concurrent executions, saw %d", p)
	}
}

func TestExecutePanicIsolation(t *testing.T) {
	r := NewRegistry()
	panicky := &fakeTool{
		name: "panicky",
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			panic("boom")
		},
	}
	calm := &fakeTool{name: "calm"}
	for _, tool := range []Tool{panicky, calm} {
		if err := r.Register(tool); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	e := NewExecutor(r, nil)
	results := e.ExecuteAll(context.Background(), []models.ToolCall{
		{ID: "c1", Name: "panicky"},
		{ID: "c2", Name: "calm"},
	})

	if results[0].Error == nil {
		t.Fatal("expected panicking tool to produce an error")
	}
	toolErr, ok := GetToolError(results[0].Error)
	if !ok || toolErr.Type != ToolErrorPanic {
		t.Errorf("expected panic error type, got %v", results[0].Error)
	}

	// Sibling call is unaffected.
	if results[1].Error != nil {
		t.Errorf("sibling call failed: %v", results[1].Error)
	}
	if results[1].Result == nil || results[1].Result.Content != "ok from calm" {
		t.Errorf("unexpected sibling result: %+v", results[1].Result)
	}
}

func TestExecuteTimeout(t *testing.T) {
	r := NewRegistry()
	tool := &fakeTool{
		name: "stuck",
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			select {
			case <-time.After(5 * time.Second):
				return &ToolResult{Content: "too late"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e := NewExecutor(r, &ExecutorConfig{MaxConcurrency: 1, DefaultTimeout: 20 * time.Millisecond})
	res := e.Execute(context.Background(), models.ToolCall{ID: "c1", Name: "stuck"})
	if res.Error == nil {
		t.Fatal("expected timeout error")
	}
	toolErr, ok := GetToolError(res.Error)
	if !ok || toolErr.Type != ToolErrorTimeout {
		t.Errorf("expected timeout error type, got %v", res.Error)
	}
	if !errors.Is(res.Error, ErrToolTimeout) {
		t.Errorf("expected ErrToolTimeout in chain, got %v", res.Error)
	}
}

func TestExecuteRetriesOnlyWhenConfigured(t *testing.T) {
	var calls int32
	r := NewRegistry()
	tool := &fakeTool{
		name: "flaky",
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, errors.New("connection refused")
			}
			return &ToolResult{Content: "recovered"}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Default: no retries, the failure is reported as-is.
	e := NewExecutor(r, nil)
	res := e.Execute(context.Background(), models.ToolCall{ID: "c1", Name: "flaky"})
	if res.Error == nil {
		t.Fatal("expected error without retries")
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}

	// Per-tool override enables retries for retryable errors.
	atomic.StoreInt32(&calls, 0)
	e.ConfigureTool("flaky", &ToolConfig{Retries: 3, RetryBackoff: time.Millisecond})
	res = e.Execute(context.Background(), models.ToolCall{ID: "c2", Name: "flaky"})
	if res.Error != nil {
		t.Fatalf("expected success after retries: %v", res.Error)
	}
	if res.Result.Content != "recovered" {
		t.Errorf("unexpected content: %q", res.Result.Content)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestExecuteNoRetryOnInvalidInput(t *testing.T) {
	var calls int32
	r := NewRegistry()
	tool := &fakeTool{
		name:   "strict",
		schema: `{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`,
		execute: func(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
			atomic.AddInt32(&calls, 1)
			return &ToolResult{Content: "ok"}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e := NewExecutor(r, nil)
	e.ConfigureTool("strict", &ToolConfig{Retries: 5, RetryBackoff: time.Millisecond})
	res := e.Execute(context.Background(), models.ToolCall{ID: "c1", Name: "strict", Input: json.RawMessage(`{}`)})
	if res.Error == nil {
		t.Fatal("expected validation error")
	}
	if res.Attempts != 1 {
		t.Errorf("validation errors must not be retried, got %d attempts", res.Attempts)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("tool must not run on invalid input, ran %d times", n)
	}
}

func TestResultsToMessages(t *testing.T) {
	results := []*ExecutionResult{
		{ToolCallID: "c1", Result: &ToolResult{Content: "fine"}},
		{ToolCallID: "c2", Error: errors.New("it broke")},
		{ToolCallID: "c3", Result: &ToolResult{Content: "soft failure", IsError: true}},
		nil,
	}

	msgs := ResultsToMessages(results)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].IsError || msgs[0].Content != "fine" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if !msgs[1].IsError || msgs[1].Content != "it broke" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}
	if !msgs[2].IsError || msgs[2].Content != "soft failure" {
		t.Errorf("unexpected third message: %+v", msgs[2])
	}
	if !msgs[3].IsError {
		t.Errorf("nil result must become an error outcome: %+v", msgs[3])
	}
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sveahq/bolagsagent/internal/observability"
	"github.com/sveahq/bolagsagent/pkg/models"
)

const (
	// eventBufferSize is the channel buffer for outbound events.
	eventBufferSize = 64

	// MaxResponseTextSize caps accumulated response text per round trip.
	MaxResponseTextSize = 1 << 20

	// MaxToolCallsPerIteration caps tool calls per model round trip.
	MaxToolCallsPerIteration = 32
)

// LoopConfig configures the agentic loop.
type LoopConfig struct {
	// MaxIterations limits the number of model round trips per turn.
	// Default: 10
	MaxIterations int

	// MaxTokens is the max tokens for model responses.
	// Default: 4096
	MaxTokens int

	// Model overrides the provider's default model.
	Model string

	// System is the system prompt for every round trip.
	System string

	// Temperature controls sampling randomness.
	Temperature float64

	// EnableThinking turns on extended thinking.
	EnableThinking bool

	// ThinkingBudgetTokens is the token budget for extended thinking.
	ThinkingBudgetTokens int

	// StreamToolInput forwards partial tool argument fragments to
	// clients as the model produces them.
	StreamToolInput bool

	// ExecutorConfig configures the parallel tool executor.
	ExecutorConfig *ExecutorConfig
}

// DefaultLoopConfig returns the default loop configuration.
func DefaultLoopConfig() *LoopConfig {
	return &LoopConfig{
		MaxIterations:  10,
		MaxTokens:      4096,
		ExecutorConfig: DefaultExecutorConfig(),
	}
}

func sanitizeLoopConfig(config *LoopConfig) *LoopConfig {
	if config == nil {
		return DefaultLoopConfig()
	}
	cfg := *config
	defaults := DefaultLoopConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.ExecutorConfig == nil {
		cfg.ExecutorConfig = defaults.ExecutorConfig
	}
	return &cfg
}

// Loop implements the multi-round agentic conversation loop.
//
// Each turn alternates between streaming a model response and executing
// any tools the model requested, folding the outcomes back into the
// conversation until the model answers without requesting tools or the
// iteration ceiling is reached.
type Loop struct {
	provider LLMProvider
	registry *Registry
	executor *Executor
	config   *LoopConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewLoop creates an agentic loop. If config is nil, DefaultLoopConfig
// is used. Logger and metrics may be nil.
func NewLoop(provider LLMProvider, registry *Registry, config *LoopConfig, logger *observability.Logger, metrics *observability.Metrics) *Loop {
	config = sanitizeLoopConfig(config)
	if registry == nil {
		registry = NewRegistry()
	}
	return &Loop{
		provider: provider,
		registry: registry,
		executor: NewExecutor(registry, config.ExecutorConfig),
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Registry returns the loop's tool registry.
func (l *Loop) Registry() *Registry {
	return l.registry
}

// ConfigureTool sets per-tool executor overrides.
func (l *Loop) ConfigureTool(name string, config *ToolConfig) {
	l.executor.ConfigureTool(name, config)
}

// Run executes one turn of the conversation and streams events through
// the returned channel. The channel is closed after exactly one done or
// error event.
func (l *Loop) Run(ctx context.Context, messages []CompletionMessage) (<-chan Event, error) {
	if l.provider == nil {
		return nil, ErrNoProvider
	}
	if len(messages) == 0 {
		return nil, errors.New("no messages")
	}

	events := make(chan Event, eventBufferSize)

	go func() {
		defer close(events)
		l.run(ctx, messages, events)
	}()

	return events, nil
}

func (l *Loop) run(ctx context.Context, messages []CompletionMessage, events chan<- Event) {
	state := make([]CompletionMessage, len(messages))
	copy(state, messages)

	var usage models.Usage

	for iteration := 0; iteration < l.config.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			l.fail(ctx, events, &LoopError{Phase: PhaseInit, Iteration: iteration, Cause: ctx.Err()})
			return
		default:
		}

		text, toolCalls, err := l.streamPhase(ctx, state, &usage, events)
		if err != nil {
			l.fail(ctx, events, &LoopError{Phase: PhaseStream, Iteration: iteration, Cause: err})
			return
		}

		state = append(state, CompletionMessage{
			Role:      string(models.RoleAssistant),
			Content:   text,
			ToolCalls: toolCalls,
		})

		if len(toolCalls) == 0 {
			events <- Event{Type: EventDone, Usage: &usage}
			return
		}

		results := l.executeToolsPhase(ctx, toolCalls, events)
		state = append(state, CompletionMessage{
			Role:        string(models.RoleTool),
			ToolResults: results,
		})
	}

	// Iteration ceiling reached: the turn ends without a model-declared
	// stop, but the stream still terminates cleanly for the client.
	if l.logger != nil {
		l.logger.Warn(ctx, "loop terminated at iteration ceiling",
			"max_iterations", l.config.MaxIterations)
	}
	if l.metrics != nil {
		l.metrics.RecordError("agent", "max_iterations")
	}
	events <- Event{Type: EventDone, Usage: &usage}
}

// streamPhase performs one model round trip, forwarding text and
// thinking fragments to the client and collecting tool calls.
func (l *Loop) streamPhase(ctx context.Context, messages []CompletionMessage, usage *models.Usage, events chan<- Event) (string, []models.ToolCall, error) {
	req := &CompletionRequest{
		Model:       l.config.Model,
		System:      l.config.System,
		Messages:    messages,
		Tools:       l.registry.AsLLMTools(),
		MaxTokens:   l.config.MaxTokens,
		Temperature: l.config.Temperature,
	}
	if l.config.EnableThinking && l.config.ThinkingBudgetTokens > 0 {
		req.EnableThinking = true
		req.ThinkingBudgetTokens = l.config.ThinkingBudgetTokens
	}

	start := time.Now()
	completion, err := l.provider.Complete(ctx, req)
	if err != nil {
		l.recordLLM(req.Model, "error", start, 0, 0)
		return "", nil, err
	}

	var toolCalls []models.ToolCall
	var textBuilder strings.Builder
	var inTokens, outTokens int

	for chunk := range completion {
		if chunk.Error != nil {
			l.recordLLM(req.Model, "error", start, inTokens, outTokens)
			return "", nil, chunk.Error
		}

		if chunk.ThinkingStart {
			events <- Event{Type: EventThinkingStart}
		}
		if chunk.Thinking != "" {
			events <- Event{Type: EventThinking, Text: chunk.Thinking}
		}

		if chunk.Text != "" {
			if textBuilder.Len()+len(chunk.Text) > MaxResponseTextSize {
				return "", nil, fmt.Errorf("response text exceeds maximum size of %d bytes", MaxResponseTextSize)
			}
			textBuilder.WriteString(chunk.Text)
			events <- Event{Type: EventText, Text: chunk.Text}
		}

		if chunk.ToolStart != nil {
			events <- Event{
				Type:       EventToolStart,
				Tool:       chunk.ToolStart.Name,
				ToolCallID: chunk.ToolStart.ID,
			}
		}
		if chunk.ToolInputDelta != "" && l.config.StreamToolInput {
			events <- Event{
				Type:       EventToolInput,
				ToolCallID: chunk.ToolInputID,
				Input:      chunk.ToolInputDelta,
			}
		}

		if chunk.ToolCall != nil {
			if len(toolCalls) >= MaxToolCallsPerIteration {
				return "", nil, fmt.Errorf("tool calls exceed maximum of %d per iteration", MaxToolCallsPerIteration)
			}
			toolCalls = append(toolCalls, *chunk.ToolCall)
		}

		if chunk.Done {
			inTokens = chunk.InputTokens
			outTokens = chunk.OutputTokens
		}
	}

	usage.Add(inTokens, outTokens)
	l.recordLLM(req.Model, "success", start, inTokens, outTokens)

	return textBuilder.String(), toolCalls, nil
}

// executeToolsPhase runs the requested tools in parallel and reports
// each outcome to the client. Failures are folded into error outcomes;
// the conversation continues regardless.
func (l *Loop) executeToolsPhase(ctx context.Context, toolCalls []models.ToolCall, events chan<- Event) []models.ToolResult {
	for _, tc := range toolCalls {
		events <- Event{Type: EventToolExecuting, Tool: tc.Name, ToolCallID: tc.ID}
	}

	execResults := l.executor.ExecuteAll(ctx, toolCalls)
	results := ResultsToMessages(execResults)

	for i := range results {
		if results[i].ToolCallID == "" {
			results[i].ToolCallID = toolCalls[i].ID
		}

		ev := Event{
			Type:       EventToolResult,
			Tool:       toolCalls[i].Name,
			ToolCallID: results[i].ToolCallID,
			Success:    !results[i].IsError,
		}
		if results[i].IsError {
			ev.Error = results[i].Content
		}
		events <- ev

		if l.metrics != nil {
			status := "success"
			if results[i].IsError {
				status = "error"
			}
			duration := time.Duration(0)
			if execResults[i] != nil {
				duration = execResults[i].Duration
			}
			l.metrics.RecordToolExecution(toolCalls[i].Name, status, duration.Seconds())
		}
	}

	return results
}

func (l *Loop) fail(ctx context.Context, events chan<- Event, err *LoopError) {
	if l.logger != nil {
		l.logger.Error(ctx, "loop failed", "phase", string(err.Phase), "iteration", err.Iteration, "error", err)
	}
	if l.metrics != nil {
		l.metrics.RecordError("agent", string(err.Phase))
	}
	events <- Event{Type: EventError, Error: err.Error()}
}

func (l *Loop) recordLLM(model, status string, start time.Time, inTokens, outTokens int) {
	if l.metrics == nil {
		return
	}
	if model == "" {
		model = "default"
	}
	l.metrics.RecordLLMRequest(l.provider.Name(), model, status, time.Since(start).Seconds(), inTokens, outTokens)
}

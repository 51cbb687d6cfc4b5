package agent

import (
	"context"
	"encoding/json"

	"github.com/sveahq/bolagsagent/pkg/models"
)

// LLMProvider defines the interface for model backends.
//
// Implementations handle the specifics of one API while presenting a
// unified streaming interface to the loop. Implementations must be safe
// for concurrent use.
type LLMProvider interface {
	// Complete sends a request and returns a streaming response.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []Model

	// SupportsTools returns whether the provider supports tool use.
	SupportsTools() bool
}

// CompletionRequest contains all parameters for one model round trip.
type CompletionRequest struct {
	// Model specifies which model to use. If empty, the provider's
	// default model is used.
	Model string `json:"model"`

	// System is the system prompt.
	System string `json:"system,omitempty"`

	// Messages contains the conversation history in chronological order.
	Messages []CompletionMessage `json:"messages"`

	// Tools defines the tools the model may request.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens limits the response length. 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness. Ignored when thinking
	// is enabled, since extended thinking forces temperature 1.
	Temperature float64 `json:"temperature,omitempty"`

	// EnableThinking enables extended thinking for supported models.
	EnableThinking bool `json:"enable_thinking,omitempty"`

	// ThinkingBudgetTokens sets the token budget for extended thinking.
	ThinkingBudgetTokens int `json:"thinking_budget_tokens,omitempty"`
}

// CompletionMessage represents a single message in a conversation.
// Role values: "user", "assistant", "tool".
type CompletionMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is a single chunk in a streaming model response.
//
// Tool calls arrive in three stages: ToolStart when the model opens a
// tool-use block (ID and name known, input empty), ToolInputDelta
// fragments as the arguments stream, and ToolCall with the complete
// arguments when the block closes.
type CompletionChunk struct {
	// Text contains partial response text.
	Text string `json:"text,omitempty"`

	// ToolStart announces a tool-use block before its input has arrived.
	ToolStart *models.ToolCall `json:"tool_start,omitempty"`

	// ToolInputDelta is a partial JSON fragment of tool arguments.
	ToolInputDelta string `json:"tool_input_delta,omitempty"`

	// ToolInputID identifies which pending tool call a delta belongs to.
	ToolInputID string `json:"tool_input_id,omitempty"`

	// ToolCall contains a complete tool execution request.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true when the stream has completed successfully.
	Done bool `json:"done,omitempty"`

	// Error contains any error that occurred; streaming terminates.
	Error error `json:"-"`

	// Thinking contains reasoning text when extended thinking is enabled.
	Thinking string `json:"thinking,omitempty"`

	// ThinkingStart signals the beginning of a thinking block.
	ThinkingStart bool `json:"thinking_start,omitempty"`

	// ThinkingEnd signals the end of a thinking block.
	ThinkingEnd bool `json:"thinking_end,omitempty"`

	// InputTokens and OutputTokens are populated on the final chunk.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Model describes an available model.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContextSize int    `json:"context_size"`
}

// Tool defines the interface for executable agent tools.
type Tool interface {
	// Name returns the tool name for model function calling.
	Name() string

	// Description returns a natural language description of the tool.
	Description() string

	// Schema returns the JSON Schema defining the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with the given JSON parameters.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult contains the output from a tool execution. Failures the
// model should see and reason about are communicated with IsError=true
// rather than as Go errors.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

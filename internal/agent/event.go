package agent

import "github.com/sveahq/bolagsagent/pkg/models"

// EventType identifies a streaming event sent to clients.
type EventType string

const (
	// EventThinkingStart marks the beginning of a reasoning block.
	EventThinkingStart EventType = "thinking_start"

	// EventThinking carries a reasoning text fragment.
	EventThinking EventType = "thinking"

	// EventText carries a response text fragment.
	EventText EventType = "text"

	// EventToolStart announces that the model requested a tool.
	EventToolStart EventType = "tool_start"

	// EventToolInput carries a partial JSON fragment of tool arguments.
	EventToolInput EventType = "tool_input"

	// EventToolExecuting announces that a tool invocation began running.
	EventToolExecuting EventType = "tool_executing"

	// EventToolResult reports the outcome of one tool invocation.
	EventToolResult EventType = "tool_result"

	// EventDone terminates a successful stream and carries total usage.
	EventDone EventType = "done"

	// EventError terminates a failed stream.
	EventError EventType = "error"
)

// Event is one entry in the stream a client receives while a turn runs.
// Every stream ends with exactly one done or error event.
type Event struct {
	Type EventType `json:"type"`

	// Text is the fragment for text and thinking events.
	Text string `json:"text,omitempty"`

	// Tool and ToolCallID identify the invocation for tool events.
	Tool       string `json:"tool,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Input is the partial argument fragment for tool_input events.
	Input string `json:"input,omitempty"`

	// Success reports the outcome for tool_result events.
	Success bool `json:"success,omitempty"`

	// Error carries the message for error and failed tool_result events.
	Error string `json:"error,omitempty"`

	// Usage is populated on the done event.
	Usage *models.Usage `json:"usage,omitempty"`
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// MaxToolNameLength limits tool name size.
	MaxToolNameLength = 256

	// MaxToolParamsSize limits tool parameter payload size (10MB).
	MaxToolParamsSize = 10 * 1024 * 1024
)

// Registry manages the catalog of tools available to the model.
//
// The catalog order is stable: List and AsLLMTools return tools in
// registration order, so the model sees an identical catalog on every
// round trip of a conversation.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the catalog. The tool's schema is compiled
// once here; malformed schemas are rejected at startup rather than
// surfacing mid-conversation.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if len(name) > MaxToolNameLength {
		return fmt.Errorf("tool name exceeds %d characters", MaxToolNameLength)
	}

	var schema *jsonschema.Schema
	if raw := tool.Schema(); len(raw) > 0 {
		compiled, err := jsonschema.CompileString(name+".json", string(raw))
		if err != nil {
			return fmt.Errorf("tool %s has invalid schema: %w", name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.order = append(r.order, name)
	r.tools[name] = tool
	r.schemas[name] = schema
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// AsLLMTools returns the catalog for inclusion in a completion request.
func (r *Registry) AsLLMTools() []Tool {
	return r.List()
}

// Execute runs a named tool with the given parameters.
//
// An unknown tool name yields a soft error result rather than an error:
// the model sees what went wrong and can correct itself. Parameters that
// violate the tool's schema yield an InvalidArgumentError before the
// tool runs.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	if len(params) > MaxToolParamsSize {
		return nil, &InvalidArgumentError{Tool: name, Reason: fmt.Sprintf("parameters exceed %d bytes", MaxToolParamsSize)}
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return &ToolResult{
			Content: fmt.Sprintf("unknown tool: %s", name),
			IsError: true,
		}, nil
	}

	if schema != nil {
		var decoded any
		input := params
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		if err := json.Unmarshal(input, &decoded); err != nil {
			return nil, &InvalidArgumentError{Tool: name, Reason: "parameters are not valid JSON"}
		}
		if err := schema.Validate(decoded); err != nil {
			return nil, &InvalidArgumentError{Tool: name, Reason: err.Error()}
		}
	}

	return tool.Execute(ctx, params)
}

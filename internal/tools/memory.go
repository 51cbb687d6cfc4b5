package tools

import (
	"context"
	"encoding/json"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/notes"
)

// MemoryTool gives the model a small per-user notebook. Records are
// scoped to the user attached to the request context.
type MemoryTool struct {
	store *notes.Store
}

// NewMemoryTool creates the memory tool on top of a notes store.
func NewMemoryTool(store *notes.Store) *MemoryTool {
	return &MemoryTool{store: store}
}

func (t *MemoryTool) Name() string {
	return "memory"
}

func (t *MemoryTool) Description() string {
	return "Spara eller hämta anteckningar mellan konversationer. action=write sparar en nyckel/värde-anteckning, action=read hämtar anteckningar för en nyckel eller de senaste anteckningarna."
}

func (t *MemoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["write", "read"]},
			"key": {"type": "string", "description": "Nyckel för anteckningen, t.ex. ett organisationsnummer"},
			"value": {"type": "string", "description": "Innehållet att spara (endast write)"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "description": "Max antal anteckningar att hämta (endast read utan nyckel)"}
		},
		"required": ["action"]
	}`)
}

type memoryInput struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Limit  int    `json:"limit"`
}

type noteEntry struct {
	Key     string `json:"nyckel"`
	Value   string `json:"varde"`
	Created string `json:"skapad"`
}

func (t *MemoryTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in memoryInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	userID := agent.UserIDFromContext(ctx)

	switch in.Action {
	case "write":
		if in.Key == "" || in.Value == "" {
			return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: "write kräver både key och value"}
		}
		rec, err := t.store.Append(ctx, userID, in.Key, in.Value)
		if err != nil {
			return nil, err
		}
		return jsonResult(map[string]string{
			"status": "sparat",
			"nyckel": rec.Key,
			"skapad": rec.CreatedAt.Format("2006-01-02 15:04:05"),
		})

	case "read":
		var (
			records []*notes.Record
			err     error
		)
		if in.Key != "" {
			records, err = t.store.ByKey(ctx, userID, in.Key)
		} else {
			records, err = t.store.Recent(ctx, userID, in.Limit)
		}
		if err != nil {
			return nil, err
		}

		entries := make([]noteEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, noteEntry{
				Key:     r.Key,
				Value:   r.Value,
				Created: r.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return jsonResult(map[string]any{
			"antal":        len(entries),
			"anteckningar": entries,
		})

	default:
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: "action måste vara write eller read"}
	}
}

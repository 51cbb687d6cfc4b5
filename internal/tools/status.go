package tools

import (
	"context"
	"encoding/json"

	"github.com/sveahq/bolagsagent/internal/agent"
)

// StatusTool reports whether the upstream connection works: it fetches a
// credential and pings the health endpoint. It never returns an error;
// failures are reported in the payload so the model can relay them.
type StatusTool struct {
	tokens TokenSource
	client CompanyAPI
}

// NewStatusTool creates the check_status tool.
func NewStatusTool(tokens TokenSource, client CompanyAPI) *StatusTool {
	return &StatusTool{tokens: tokens, client: client}
}

func (t *StatusTool) Name() string {
	return "check_status"
}

func (t *StatusTool) Description() string {
	return "Kontrollera anslutningen till Bolagsverkets API. Returnerar OK eller ERROR med felmeddelande."
}

func (t *StatusTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *StatusTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if _, err := t.tokens.Token(ctx); err != nil {
		return jsonResult(map[string]string{
			"status":  "ERROR",
			"message": "kunde inte hämta åtkomsttoken: " + err.Error(),
		})
	}

	if err := t.client.IsAlive(ctx); err != nil {
		return jsonResult(map[string]string{
			"status":  "ERROR",
			"message": "API:et svarar inte: " + err.Error(),
		})
	}

	return jsonResult(map[string]string{
		"status":  "OK",
		"message": "Anslutningen till Bolagsverket fungerar.",
	})
}

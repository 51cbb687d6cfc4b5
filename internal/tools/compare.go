package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// CompareTool looks up two companies concurrently and returns both
// records side by side. A failing side becomes an error entry for that
// side only; the other side is still returned.
type CompareTool struct {
	client CompanyAPI
}

// NewCompareTool creates the compare_companies tool.
func NewCompareTool(client CompanyAPI) *CompareTool {
	return &CompareTool{client: client}
}

func (t *CompareTool) Name() string {
	return "compare_companies"
}

func (t *CompareTool) Description() string {
	return "Jämför två svenska företag sida vid sida: namn, organisationsform, status, adress och verksamhet."
}

func (t *CompareTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"orgnr_1": {"type": "string", "description": "Organisationsnummer för det första företaget"},
			"orgnr_2": {"type": "string", "description": "Organisationsnummer för det andra företaget"}
		},
		"required": ["orgnr_1", "orgnr_2"]
	}`)
}

func (t *CompareTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in struct {
		OrgNr1 string `json:"orgnr_1"`
		OrgNr2 string `json:"orgnr_2"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	sides := [2]any{}
	var wg sync.WaitGroup
	for i, raw := range []string{in.OrgNr1, in.OrgNr2} {
		wg.Add(1)
		go func(idx int, orgnr string) {
			defer wg.Done()
			sides[idx] = t.lookup(ctx, orgnr)
		}(i, raw)
	}
	wg.Wait()

	return jsonResult(map[string]any{
		"foretag_1": sides[0],
		"foretag_2": sides[1],
	})
}

func (t *CompareTool) lookup(ctx context.Context, raw string) any {
	digits := bolagsverket.NormalizeOrgNr(raw)
	if !bolagsverket.ValidOrgNr(digits) {
		return map[string]string{"error": "ogiltigt organisationsnummer: " + raw}
	}

	org, err := t.client.Organisation(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return map[string]string{"error": "not found"}
	}
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return org.Shape(digits)
}

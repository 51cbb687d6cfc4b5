package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// MaxBatchSize caps the number of companies a single batch_lookup may
// request.
const MaxBatchSize = 20

// batchConcurrency bounds parallel upstream lookups within one batch.
const batchConcurrency = 5

// BatchTool looks up several companies in one call. Each entry succeeds
// or fails on its own; one bad organisation number never spoils the
// rest.
type BatchTool struct {
	client CompanyAPI
}

// NewBatchTool creates the batch_lookup tool.
func NewBatchTool(client CompanyAPI) *BatchTool {
	return &BatchTool{client: client}
}

func (t *BatchTool) Name() string {
	return "batch_lookup"
}

func (t *BatchTool) Description() string {
	return fmt.Sprintf("Slå upp flera svenska företag på en gång, max %d organisationsnummer per anrop.", MaxBatchSize)
}

func (t *BatchTool) Schema() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"type": "object",
		"properties": {
			"orgnr_lista": {
				"type": "array",
				"items": {"type": "string"},
				"minItems": 1,
				"maxItems": %d,
				"description": "Lista med organisationsnummer"
			}
		},
		"required": ["orgnr_lista"]
	}`, MaxBatchSize))
}

func (t *BatchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in struct {
		OrgNrLista []string `json:"orgnr_lista"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	// The schema already caps list size at validation time; this guard
	// holds for callers that bypass the registry.
	if len(in.OrgNrLista) > MaxBatchSize {
		return nil, &agent.InvalidArgumentError{
			Tool:   t.Name(),
			Reason: fmt.Sprintf("högst %d organisationsnummer per anrop, fick %d", MaxBatchSize, len(in.OrgNrLista)),
		}
	}
	if len(in.OrgNrLista) == 0 {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: "orgnr_lista är tom"}
	}

	results := make([]any, len(in.OrgNrLista))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for i, raw := range in.OrgNrLista {
		wg.Add(1)
		go func(idx int, orgnr string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = t.lookup(ctx, orgnr)
		}(i, raw)
	}
	wg.Wait()

	return jsonResult(map[string]any{
		"antal":   len(results),
		"foretag": results,
	})
}

func (t *BatchTool) lookup(ctx context.Context, raw string) any {
	digits := bolagsverket.NormalizeOrgNr(raw)
	if !bolagsverket.ValidOrgNr(digits) {
		return map[string]string{
			"org_nummer": raw,
			"error":      "ogiltigt organisationsnummer",
		}
	}

	org, err := t.client.Organisation(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return map[string]string{
			"org_nummer": bolagsverket.FormatOrgNr(digits),
			"error":      "not found",
		}
	}
	if err != nil {
		return map[string]string{
			"org_nummer": bolagsverket.FormatOrgNr(digits),
			"error":      err.Error(),
		}
	}
	return org.Shape(digits)
}

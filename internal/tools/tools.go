// Package tools implements the tool catalog the agent exposes to the
// model: live lookups against Bolagsverket's open-data API plus a small
// per-user memory.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// CompanyAPI is the slice of the registry client the tools use.
type CompanyAPI interface {
	Organisation(ctx context.Context, orgnr string) (*bolagsverket.Organisation, error)
	Dokumentlista(ctx context.Context, orgnr string) ([]bolagsverket.Dokument, error)
	Dokument(ctx context.Context, dokumentID string) ([]byte, error)
	IsAlive(ctx context.Context) error
}

// TokenSource supplies an upstream bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

const orgnrSchema = `{
	"type": "object",
	"properties": {
		"orgnr": {
			"type": "string",
			"description": "Svenskt organisationsnummer, med eller utan bindestreck, t.ex. 556016-0680"
		}
	},
	"required": ["orgnr"]
}`

// jsonResult marshals a payload into a successful tool result.
func jsonResult(v any) (*agent.ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &agent.ToolResult{Content: string(data)}, nil
}

// errorResult returns a soft failure the model can reason about.
func errorResult(format string, args ...any) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}

// parseOrgNr normalizes and validates an organisation number argument.
// A malformed number yields a soft error result.
func parseOrgNr(raw string) (string, *agent.ToolResult) {
	digits := bolagsverket.NormalizeOrgNr(raw)
	if !bolagsverket.ValidOrgNr(digits) {
		return "", errorResult("ogiltigt organisationsnummer: %q", raw)
	}
	return digits, nil
}

package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

type orgnrInput struct {
	OrgNr string `json:"orgnr"`
}

// InfoTool looks up a company record and returns the flattened company
// information.
type InfoTool struct {
	client CompanyAPI
}

// NewInfoTool creates the company_info tool.
func NewInfoTool(client CompanyAPI) *InfoTool {
	return &InfoTool{client: client}
}

func (t *InfoTool) Name() string {
	return "company_info"
}

func (t *InfoTool) Description() string {
	return "Hämta grundläggande information om ett svenskt företag: namn, organisationsform, status, adress, verksamhet och SNI-koder."
}

func (t *InfoTool) Schema() json.RawMessage {
	return json.RawMessage(orgnrSchema)
}

func (t *InfoTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in orgnrInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	digits, errRes := parseOrgNr(in.OrgNr)
	if errRes != nil {
		return errRes, nil
	}

	org, err := t.client.Organisation(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return errorResult("not found"), nil
	}
	if err != nil {
		return nil, err
	}

	return jsonResult(org.Shape(digits))
}

// AddressTool returns just a company's postal address.
type AddressTool struct {
	client CompanyAPI
}

// NewAddressTool creates the company_address tool.
func NewAddressTool(client CompanyAPI) *AddressTool {
	return &AddressTool{client: client}
}

func (t *AddressTool) Name() string {
	return "company_address"
}

func (t *AddressTool) Description() string {
	return "Hämta postadressen för ett svenskt företag."
}

func (t *AddressTool) Schema() json.RawMessage {
	return json.RawMessage(orgnrSchema)
}

func (t *AddressTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in orgnrInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	digits, errRes := parseOrgNr(in.OrgNr)
	if errRes != nil {
		return errRes, nil
	}

	org, err := t.client.Organisation(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return errorResult("not found"), nil
	}
	if err != nil {
		return nil, err
	}

	info := org.Shape(digits)
	return jsonResult(map[string]any{
		"org_nummer": info.OrgNr,
		"namn":       info.Namn,
		"adress":     info.Adress,
	})
}

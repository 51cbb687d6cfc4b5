package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// KeyFiguresTool downloads a company's most recent annual report and
// extracts its key figures. A filing that cannot be read yields an
// explanatory payload rather than a failure; figures the filing does not
// carry are simply absent.
type KeyFiguresTool struct {
	client CompanyAPI
}

// NewKeyFiguresTool creates the key_figures tool.
func NewKeyFiguresTool(client CompanyAPI) *KeyFiguresTool {
	return &KeyFiguresTool{client: client}
}

func (t *KeyFiguresTool) Name() string {
	return "key_figures"
}

func (t *KeyFiguresTool) Description() string {
	return "Hämta nyckeltal (nettoomsättning, årets resultat, eget kapital, soliditet, antal anställda) ur företagets senaste årsredovisning."
}

func (t *KeyFiguresTool) Schema() json.RawMessage {
	return json.RawMessage(orgnrSchema)
}

func (t *KeyFiguresTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in orgnrInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	digits, errRes := parseOrgNr(in.OrgNr)
	if errRes != nil {
		return errRes, nil
	}

	docs, err := t.client.Dokumentlista(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return errorResult("not found"), nil
	}
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return errorResult("ingen årsredovisning finns registrerad för %s", bolagsverket.FormatOrgNr(digits)), nil
	}

	doc := newestDocument(docs)
	raw, err := t.client.Dokument(ctx, doc.DokumentID)
	if err != nil {
		return nil, err
	}

	report, err := bolagsverket.ParseArsredovisning(raw)
	if errors.Is(err, bolagsverket.ErrUnreadableArchive) {
		return jsonResult(map[string]any{
			"org_nummer":  bolagsverket.FormatOrgNr(digits),
			"dokument_id": doc.DokumentID,
			"meddelande":  "Årsredovisningen kunde inte läsas maskinellt. Dokumentet finns men nyckeltalen måste hämtas manuellt.",
		})
	}
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]any{
		"org_nummer":       bolagsverket.FormatOrgNr(digits),
		"dokument_id":      doc.DokumentID,
		"rakenskapsperiod": doc.PeriodString(),
		"rakenskapsar": map[string]string{
			"from": report.RakenskapsarStart,
			"tom":  report.RakenskapsarSlut,
		},
		"nyckeltal": report.Nyckeltal,
	})
}

// newestDocument returns the entry with the latest registration time.
// Registration timestamps are ISO 8601, so string order is time order.
func newestDocument(docs []bolagsverket.Dokument) bolagsverket.Dokument {
	newest := docs[0]
	for _, d := range docs[1:] {
		if d.Registreringstidpunkt > newest.Registreringstidpunkt {
			newest = d
		}
	}
	return newest
}

// ListReportsTool lists the annual reports registered for a company.
type ListReportsTool struct {
	client CompanyAPI
}

// NewListReportsTool creates the list_annual_reports tool.
func NewListReportsTool(client CompanyAPI) *ListReportsTool {
	return &ListReportsTool{client: client}
}

func (t *ListReportsTool) Name() string {
	return "list_annual_reports"
}

func (t *ListReportsTool) Description() string {
	return "Lista alla registrerade årsredovisningar för ett företag med räkenskapsperiod och registreringstidpunkt."
}

func (t *ListReportsTool) Schema() json.RawMessage {
	return json.RawMessage(orgnrSchema)
}

type reportEntry struct {
	Index       int    `json:"index"`
	DokumentID  string `json:"dokument_id"`
	Period      string `json:"rakenskapsperiod"`
	Filformat   string `json:"filformat,omitempty"`
	Registrerad string `json:"registrerad"`
}

func (t *ListReportsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in orgnrInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	digits, errRes := parseOrgNr(in.OrgNr)
	if errRes != nil {
		return errRes, nil
	}

	docs, err := t.client.Dokumentlista(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return errorResult("not found"), nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]reportEntry, 0, len(docs))
	for i, d := range docs {
		entries = append(entries, reportEntry{
			Index:       i,
			DokumentID:  d.DokumentID,
			Period:      d.PeriodString(),
			Filformat:   d.Filformat,
			Registrerad: d.Registreringstidpunkt,
		})
	}

	return jsonResult(map[string]any{
		"org_nummer":       bolagsverket.FormatOrgNr(digits),
		"antal":            len(entries),
		"arsredovisningar": entries,
	})
}

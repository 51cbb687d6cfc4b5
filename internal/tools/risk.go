package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// Risk levels.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// RiskAssessment is the risk_analysis payload.
type RiskAssessment struct {
	OrgNr    string   `json:"org_nummer"`
	Namn     string   `json:"namn"`
	Status   string   `json:"status"`
	Score    int      `json:"riskpoang"`
	Level    string   `json:"riskniva"`
	Warnings []string `json:"varningar"`
}

// ScoreRisk computes the additive risk score and warnings for a company
// record. Signals are evaluated in a fixed order and warnings are
// appended in that order: inactive status, formal deregistration, each
// ongoing winding-up or restructuring procedure, sole-proprietor legal
// form.
func ScoreRisk(org *bolagsverket.Organisation) (int, []string) {
	score := 0
	warnings := []string{}

	if inactive(org) {
		score += 30
		warnings = append(warnings, "Organisationen är inte verksam.")
	}

	if org.Deregistered() {
		score += 50
		warnings = append(warnings, fmt.Sprintf("Avregistrerad %s.", org.AvregistreradOrganisation.Avregistreringsdatum))
	}

	for _, f := range org.PagaendeForfaranden {
		score += 40
		label := f.Typ.Klartext
		if label == "" {
			label = f.Typ.Kod
		}
		if f.Datum != "" {
			warnings = append(warnings, fmt.Sprintf("Pågående förfarande: %s (%s).", label, f.Datum))
		} else {
			warnings = append(warnings, fmt.Sprintf("Pågående förfarande: %s.", label))
		}
	}

	if soleProprietor(org) {
		score += 10
		warnings = append(warnings, "Enskild firma: företagets och ägarens ekonomi är inte åtskilda.")
	}

	return score, warnings
}

// RiskLevel buckets a score. Edges are closed below: exactly 20 is
// MEDIUM and exactly 50 is HIGH.
func RiskLevel(score int) string {
	switch {
	case score >= 50:
		return RiskHigh
	case score >= 20:
		return RiskMedium
	default:
		return RiskLow
	}
}

// inactive reports whether the registry marks the organisation as not
// operating.
func inactive(org *bolagsverket.Organisation) bool {
	kod := strings.ToUpper(org.VerksamOrganisation.Kod)
	if kod == "NEJ" || kod == "N" {
		return true
	}
	klartext := strings.ToLower(org.VerksamOrganisation.Klartext)
	return strings.HasPrefix(klartext, "nej") || strings.HasPrefix(klartext, "ej verksam")
}

// soleProprietor reports whether the legal form is enskild firma.
func soleProprietor(org *bolagsverket.Organisation) bool {
	if org.JuridiskForm.Kod == "10" {
		return true
	}
	return strings.Contains(strings.ToLower(org.JuridiskForm.Klartext), "enskild")
}

// RiskTool scores a company on registry signals.
type RiskTool struct {
	client CompanyAPI
}

// NewRiskTool creates the risk_analysis tool.
func NewRiskTool(client CompanyAPI) *RiskTool {
	return &RiskTool{client: client}
}

func (t *RiskTool) Name() string {
	return "risk_analysis"
}

func (t *RiskTool) Description() string {
	return "Gör en enkel riskbedömning av ett företag baserat på registeruppgifter: status, avregistrering, pågående förfaranden och juridisk form. Returnerar riskpoäng, risknivå (LOW/MEDIUM/HIGH) och varningar."
}

func (t *RiskTool) Schema() json.RawMessage {
	return json.RawMessage(orgnrSchema)
}

func (t *RiskTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
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

	score, warnings := ScoreRisk(org)
	return jsonResult(&RiskAssessment{
		OrgNr:    bolagsverket.FormatOrgNr(digits),
		Namn:     org.Name(),
		Status:   org.Status(),
		Score:    score,
		Level:    RiskLevel(score),
		Warnings: warnings,
	})
}

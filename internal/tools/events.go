package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// maxEventsInPayload caps the timeline returned to the model; the total
// count is always reported.
const maxEventsInPayload = 20

// defaultEventWindow is how far back the timeline reaches when the
// caller gives no from date.
const defaultEventWindow = 5 * 365 * 24 * time.Hour

const (
	eventRegistration   = "registrering"
	eventDeregistration = "avregistrering"
	eventAnnualReport   = "arsredovisning"
)

// companyEvent is one entry in a company's registration timeline.
type companyEvent struct {
	Datum       string `json:"datum"`
	Typ         string `json:"typ"`
	Beskrivning string `json:"beskrivning"`
}

// EventsTool builds a registration-history timeline for a company:
// registration, deregistration and filed annual reports, newest first.
type EventsTool struct {
	client CompanyAPI
}

func NewEventsTool(client CompanyAPI) *EventsTool {
	return &EventsTool{client: client}
}

func (t *EventsTool) Name() string {
	return "company_events"
}

func (t *EventsTool) Description() string {
	return "Visa händelsehistorik för ett företag: registrering, avregistrering och inlämnade årsredovisningar som en tidslinje, nyast först."
}

func (t *EventsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
	"type": "object",
	"properties": {
		"orgnr": {
			"type": "string",
			"description": "Svenskt organisationsnummer, med eller utan bindestreck, t.ex. 556016-0680"
		},
		"from_datum": {
			"type": "string",
			"description": "Startdatum YYYY-MM-DD (standard: fem år bakåt)"
		},
		"to_datum": {
			"type": "string",
			"description": "Slutdatum YYYY-MM-DD (standard: idag)"
		}
	},
	"required": ["orgnr"]
}`)
}

type eventsInput struct {
	OrgNr     string `json:"orgnr"`
	FromDatum string `json:"from_datum"`
	ToDatum   string `json:"to_datum"`
}

func (t *EventsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input eventsInput
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}
	digits, errRes := parseOrgNr(input.OrgNr)
	if errRes != nil {
		return errRes, nil
	}

	from, to, err := eventWindow(input.FromDatum, input.ToDatum)
	if err != nil {
		return nil, &agent.InvalidArgumentError{Tool: t.Name(), Reason: err.Error()}
	}

	org, err := t.client.Organisation(ctx, digits)
	if errors.Is(err, bolagsverket.ErrNotFound) {
		return errorResult("not found"), nil
	}
	if err != nil {
		return nil, err
	}

	// The document list is an enrichment; the timeline still renders
	// from the organisation record alone when it is unavailable.
	docs, err := t.client.Dokumentlista(ctx, digits)
	if err != nil {
		docs = nil
	}

	all := collectEvents(org, docs)
	reportCount := 0
	for _, ev := range all {
		if ev.Typ == eventAnnualReport {
			reportCount++
		}
	}

	events := filterEvents(all, from, to)
	total := len(events)
	if len(events) > maxEventsInPayload {
		events = events[:maxEventsInPayload]
	}

	return jsonResult(map[string]any{
		"org_nummer":             bolagsverket.FormatOrgNr(digits),
		"namn":                   org.Name(),
		"status":                 org.Status(),
		"organisationsform":      org.Organisationsform.Klartext,
		"antal":                  total,
		"handelser":              events,
		"antal_arsredovisningar": reportCount,
	})
}

func eventWindow(fromRaw, toRaw string) (time.Time, time.Time, error) {
	to := time.Now()
	if toRaw != "" {
		parsed, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to_datum måste vara YYYY-MM-DD")
		}
		to = parsed
	}
	from := to.Add(-defaultEventWindow)
	if fromRaw != "" {
		parsed, err := time.Parse("2006-01-02", fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from_datum måste vara YYYY-MM-DD")
		}
		from = parsed
	}
	return from, to, nil
}

func collectEvents(org *bolagsverket.Organisation, docs []bolagsverket.Dokument) []companyEvent {
	var events []companyEvent

	if reg := org.Organisationsdatum.Registreringsdatum; reg != "" {
		events = append(events, companyEvent{
			Datum:       reg,
			Typ:         eventRegistration,
			Beskrivning: "Bolaget registrerat som " + org.Organisationsform.Klartext,
		})
	}
	if avreg := org.AvregistreradOrganisation.Avregistreringsdatum; avreg != "" {
		events = append(events, companyEvent{
			Datum:       avreg,
			Typ:         eventDeregistration,
			Beskrivning: "Bolaget avregistrerat",
		})
	}
	for _, doc := range docs {
		till := doc.Rapporteringsperiod.Till
		if till == "" {
			continue
		}
		datum := doc.Registreringstidpunkt
		if datum == "" {
			datum = till
		}
		events = append(events, companyEvent{
			Datum:       datum,
			Typ:         eventAnnualReport,
			Beskrivning: "Räkenskapsår t.o.m. " + till,
		})
	}

	// Dates are ISO 8601, so string order is time order. Newest first.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Datum > events[j].Datum
	})
	return events
}

// filterEvents keeps events inside [from, to]. An event whose date does
// not parse is kept rather than silently dropped.
func filterEvents(events []companyEvent, from, to time.Time) []companyEvent {
	kept := make([]companyEvent, 0, len(events))
	for _, ev := range events {
		datum := ev.Datum
		if len(datum) > 10 {
			datum = datum[:10]
		}
		parsed, err := time.Parse("2006-01-02", datum)
		if err != nil {
			kept = append(kept, ev)
			continue
		}
		if parsed.Before(from) || parsed.After(to) {
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

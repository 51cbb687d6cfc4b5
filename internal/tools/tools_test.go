package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
)

// fakeAPI is a scriptable CompanyAPI for tests.
type fakeAPI struct {
	orgs      map[string]*bolagsverket.Organisation
	docs      map[string][]bolagsverket.Dokument
	documents map[string][]byte
	aliveErr  error

	orgCalls int32
}

func (f *fakeAPI) Organisation(ctx context.Context, orgnr string) (*bolagsverket.Organisation, error) {
	atomic.AddInt32(&f.orgCalls, 1)
	if org, ok := f.orgs[orgnr]; ok {
		return org, nil
	}
	return nil, bolagsverket.ErrNotFound
}

func (f *fakeAPI) Dokumentlista(ctx context.Context, orgnr string) ([]bolagsverket.Dokument, error) {
	if docs, ok := f.docs[orgnr]; ok {
		return docs, nil
	}
	return nil, bolagsverket.ErrNotFound
}

func (f *fakeAPI) Dokument(ctx context.Context, id string) ([]byte, error) {
	if raw, ok := f.documents[id]; ok {
		return raw, nil
	}
	return nil, errors.New("no such document")
}

func (f *fakeAPI) IsAlive(ctx context.Context) error {
	return f.aliveErr
}

type fakeTokens struct {
	err error
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "test-token", nil
}

func activeOrg(name string) *bolagsverket.Organisation {
	return &bolagsverket.Organisation{
		Organisationsnamn: bolagsverket.Organisationsnamn{
			Lista: []bolagsverket.Namnpost{{Namn: name}},
		},
		Organisationsform: bolagsverket.Kodtext{Kod: "AB", Klartext: "Aktiebolag"},
		JuridiskForm:      bolagsverket.Kodtext{Kod: "49", Klartext: "Aktiebolag"},
		VerksamOrganisation: bolagsverket.Kodtext{
			Kod: "JA", Klartext: "Ja",
		},
		PostadressOrganisation: bolagsverket.PostadressWrapper{
			Postadress: bolagsverket.Postadress{
				Utdelningsadress: "Storgatan 1",
				Postnummer:       "11122",
				Postort:          "Stockholm",
			},
		},
	}
}

func decodeResult(t *testing.T, res *agent.ToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(res.Content), &payload); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, res.Content)
	}
	return payload
}

func TestStatusToolOK(t *testing.T) {
	tool := NewStatusTool(&fakeTokens{}, &fakeAPI{})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	payload := decodeResult(t, res)
	if payload["status"] != "OK" {
		t.Errorf("expected OK, got %v", payload["status"])
	}
}

func TestStatusToolNeverReturnsError(t *testing.T) {
	cases := []struct {
		name string
		tool *StatusTool
	}{
		{"token failure", NewStatusTool(&fakeTokens{err: errors.New("bad credentials")}, &fakeAPI{})},
		{"ping failure", NewStatusTool(&fakeTokens{}, &fakeAPI{aliveErr: errors.New("503")})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.tool.Execute(context.Background(), json.RawMessage(`{}`))
			if err != nil {
				t.Fatalf("status check must not return an error: %v", err)
			}
			payload := decodeResult(t, res)
			if payload["status"] != "ERROR" {
				t.Errorf("expected ERROR status, got %v", payload["status"])
			}
			if payload["message"] == "" {
				t.Error("expected a message explaining the failure")
			}
		})
	}
}

func TestInfoTool(t *testing.T) {
	api := &fakeAPI{orgs: map[string]*bolagsverket.Organisation{
		"5560160680": activeOrg("Testbolaget AB"),
	}}
	tool := NewInfoTool(api)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"orgnr":"556016-0680"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", res.Content)
	}
	payload := decodeResult(t, res)
	if payload["namn"] != "Testbolaget AB" {
		t.Errorf("unexpected name: %v", payload["namn"])
	}
	if payload["org_nummer"] != "556016-0680" {
		t.Errorf("unexpected orgnr: %v", payload["org_nummer"])
	}
	if payload["status"] != "Aktiv" {
		t.Errorf("unexpected status: %v", payload["status"])
	}
}

func TestInfoToolNotFound(t *testing.T) {
	tool := NewInfoTool(&fakeAPI{})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"orgnr":"5560160680"}`))
	if err != nil {
		t.Fatalf("not-found must be a soft result: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected an error result")
	}
	payload := decodeResult(t, res)
	if payload["error"] != "not found" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestInfoToolInvalidOrgNr(t *testing.T) {
	api := &fakeAPI{}
	tool := NewInfoTool(api)
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"orgnr":"123"}`))
	if err != nil {
		t.Fatalf("malformed orgnr must be a soft result: %v", err)
	}
	if !res.IsError {
		t.Error("expected an error result for malformed orgnr")
	}
	if atomic.LoadInt32(&api.orgCalls) != 0 {
		t.Error("no upstream call should be made for a malformed orgnr")
	}
}

func TestAddressTool(t *testing.T) {
	api := &fakeAPI{orgs: map[string]*bolagsverket.Organisation{
		"5560160680": activeOrg("Testbolaget AB"),
	}}
	tool := NewAddressTool(api)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"orgnr":"5560160680"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	payload := decodeResult(t, res)
	adress, ok := payload["adress"].(map[string]any)
	if !ok {
		t.Fatalf("expected address block, got %v", payload)
	}
	if adress["postort"] != "Stockholm" {
		t.Errorf("unexpected postort: %v", adress["postort"])
	}
}

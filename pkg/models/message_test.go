package models

import (
	"encoding/json"
	"testing"
)

func TestNewMessage(t *testing.T) {
	m := NewMessage(RoleUser, "hej")
	if m.ID == "" {
		t.Fatal("expected generated ID")
	}
	if m.Role != RoleUser || m.Content != "hej" {
		t.Errorf("unexpected message: %+v", m)
	}
	if m.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestToolCallInputRoundTrip(t *testing.T) {
	tc := ToolCall{ID: "call_1", Name: "company_info", Input: json.RawMessage(`{"org_nummer":"5560360793"}`)}
	data, err := json.Marshal(tc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got ToolCall
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(got.Input) != string(tc.Input) {
		t.Errorf("input altered: %s", got.Input)
	}
}

func TestUsageAdd(t *testing.T) {
	var u Usage
	u.Add(100, 20)
	u.Add(250, 80)
	if u.InputTokens != 350 || u.OutputTokens != 100 {
		t.Errorf("got %+v", u)
	}
}

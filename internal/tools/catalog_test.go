package tools

import (
	"path/filepath"
	"testing"

	"github.com/sveahq/bolagsagent/internal/notes"
)

func TestCatalogOrder(t *testing.T) {
	registry, err := NewCatalog(CatalogConfig{
		Tokens: &fakeTokens{},
		Client: &fakeAPI{},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	want := []string{
		"check_status",
		"company_info",
		"company_address",
		"key_figures",
		"list_annual_reports",
		"risk_analysis",
		"compare_companies",
		"batch_lookup",
		"company_events",
	}
	got := registry.List()
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(got))
	}
	for i, tool := range got {
		if tool.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], tool.Name())
		}
	}
}

func TestCatalogWithMemory(t *testing.T) {
	store, err := notes.Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	registry, err := NewCatalog(CatalogConfig{
		Tokens: &fakeTokens{},
		Client: &fakeAPI{},
		Memory: store,
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	tools := registry.List()
	if tools[len(tools)-1].Name() != "memory" {
		t.Errorf("memory tool should close the catalog, got %s", tools[len(tools)-1].Name())
	}
}

package tools

import (
	"fmt"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/notes"
)

// CatalogConfig holds the dependencies for building the tool catalog.
type CatalogConfig struct {
	Tokens TokenSource
	Client CompanyAPI

	// Memory enables the memory tool when a store is provided.
	Memory *notes.Store
}

// NewCatalog builds the tool registry in the fixed catalog order the
// model sees on every round trip.
func NewCatalog(cfg CatalogConfig) (*agent.Registry, error) {
	registry := agent.NewRegistry()

	catalog := []agent.Tool{
		NewStatusTool(cfg.Tokens, cfg.Client),
		NewInfoTool(cfg.Client),
		NewAddressTool(cfg.Client),
		NewKeyFiguresTool(cfg.Client),
		NewListReportsTool(cfg.Client),
		NewRiskTool(cfg.Client),
		NewCompareTool(cfg.Client),
		NewBatchTool(cfg.Client),
		NewEventsTool(cfg.Client),
	}
	if cfg.Memory != nil {
		catalog = append(catalog, NewMemoryTool(cfg.Memory))
	}

	for _, tool := range catalog {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("register %s: %w", tool.Name(), err)
		}
	}
	return registry, nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sveahq/bolagsagent/internal/bolagsverket"
	"github.com/sveahq/bolagsagent/internal/tools"
)

// Listing the catalog needs no credentials, so the tools are built
// against inert upstream stubs.
var errListingOnly = errors.New("not available in listing mode")

type noTokens struct{}

func (noTokens) Token(ctx context.Context) (string, error) { return "", errListingOnly }

type noClient struct{}

func (noClient) Organisation(ctx context.Context, orgnr string) (*bolagsverket.Organisation, error) {
	return nil, errListingOnly
}

func (noClient) Dokumentlista(ctx context.Context, orgnr string) ([]bolagsverket.Dokument, error) {
	return nil, errListingOnly
}

func (noClient) Dokument(ctx context.Context, dokumentID string) ([]byte, error) {
	return nil, errListingOnly
}

func (noClient) IsAlive(ctx context.Context) error { return errListingOnly }

func buildToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog",
		Long: `Print the tools the agent advertises to the model, in catalog order.

The memory tool is omitted here; it joins the catalog at runtime when
tools.memory.enabled is set in the server configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := tools.NewCatalog(tools.CatalogConfig{
				Tokens: noTokens{},
				Client: noClient{},
				Memory: nil,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tool := range registry.List() {
				fmt.Fprintf(out, "%-22s %s\n", tool.Name(), tool.Description())
			}
			return nil
		},
	}
}

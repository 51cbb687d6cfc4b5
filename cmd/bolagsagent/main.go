// Package main provides the CLI entry point for the Bolagsverket agent
// service.
//
// The agent answers questions about Swedish companies by combining an
// LLM with tools backed by Bolagsverket's open-data API.
//
// # Basic Usage
//
// Start the server:
//
//	bolagsagent serve --config bolagsagent.yaml
//
// List the tool catalog:
//
//	bolagsagent tools
//
// # Environment Variables
//
//   - BOLAGSVERKET_CLIENT_ID: OAuth2 client id for the open-data API
//   - BOLAGSVERKET_CLIENT_SECRET: OAuth2 client secret
//   - ANTHROPIC_API_KEY: Anthropic API key for the model backend
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bolagsagent",
		Short: "Bolagsagent - AI agent for Swedish company data",
		Long: `Bolagsagent answers questions about Swedish companies.

It connects an LLM to Bolagsverket's open-data API through a tool
catalog: company lookups, address checks, annual-report key figures,
risk analysis, comparisons and batch queries.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildToolsCmd(),
	)
	return rootCmd
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/agent/providers"
	"github.com/sveahq/bolagsagent/internal/auth"
	"github.com/sveahq/bolagsagent/internal/bolagsverket"
	"github.com/sveahq/bolagsagent/internal/config"
	"github.com/sveahq/bolagsagent/internal/notes"
	"github.com/sveahq/bolagsagent/internal/observability"
	"github.com/sveahq/bolagsagent/internal/server"
	"github.com/sveahq/bolagsagent/internal/sessions"
	"github.com/sveahq/bolagsagent/internal/tools"
)

// defaultSystemPrompt steers the agent when the config does not supply
// its own prompt.
const defaultSystemPrompt = `Du är en assistent som svarar på frågor om svenska företag.
Du har verktyg mot Bolagsverkets öppna data: företagsuppgifter, adresser,
nyckeltal ur årsredovisningar, riskbedömning, jämförelser och batchuppslag.
Använd verktygen för faktauppgifter i stället för att gissa. Svara på svenska
om inte användaren skriver på ett annat språk. Organisationsnummer skrivs
NNNNNN-NNNN i svar till användaren.`

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent server",
		Long: `Start the agent server.

The server will:
1. Load configuration from the specified file (or environment variables)
2. Authenticate against Bolagsverket's OAuth2 token endpoint
3. Build the tool catalog
4. Start the HTTP server (websocket stream, chat, tools, health, metrics)

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  bolagsagent serve

  # Start with custom config
  bolagsagent serve --config /etc/bolagsagent/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := cfg.Logging.Level
	if debug {
		logLevel = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  logLevel,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	logger.Info(ctx, "starting bolagsagent",
		"version", version,
		"config", configPath,
		"http_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokens := auth.NewTokenManager(auth.Config{
		TokenURL:     cfg.Upstream.TokenURL,
		ClientID:     cfg.Upstream.ClientID,
		ClientSecret: cfg.Upstream.ClientSecret,
		Scope:        cfg.Upstream.Scope,
		Metrics:      metrics,
	})

	client := bolagsverket.NewClient(bolagsverket.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		Tokens:          tokens,
		Timeout:         cfg.Upstream.Timeout,
		DownloadTimeout: cfg.Upstream.DownloadTimeout,
		Logger:          logger,
		Metrics:         metrics,
	})

	var memory *notes.Store
	if cfg.Tools.Memory.Enabled {
		memory, err = notes.Open(cfg.Tools.Memory.Path)
		if err != nil {
			return fmt.Errorf("open memory store: %w", err)
		}
		defer memory.Close()
		logger.Info(ctx, "memory tool enabled", "path", cfg.Tools.Memory.Path)
	}

	registry, err := tools.NewCatalog(tools.CatalogConfig{
		Tokens: tokens,
		Client: client,
		Memory: memory,
	})
	if err != nil {
		return fmt.Errorf("build tool catalog: %w", err)
	}

	provider, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
		APIKey:       cfg.LLM.APIKey,
		DefaultModel: cfg.LLM.Model,
	})
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	systemPrompt := cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	loop := agent.NewLoop(provider, registry, &agent.LoopConfig{
		MaxIterations:        cfg.Agent.MaxIterations,
		MaxTokens:            cfg.LLM.MaxTokens,
		Model:                cfg.LLM.Model,
		System:               systemPrompt,
		Temperature:          cfg.LLM.Temperature,
		EnableThinking:       cfg.LLM.EnableThinking,
		ThinkingBudgetTokens: cfg.LLM.ThinkingBudget,
		StreamToolInput:      cfg.Agent.StreamToolInput,
		ExecutorConfig: &agent.ExecutorConfig{
			MaxConcurrency: cfg.Agent.MaxConcurrency,
			DefaultTimeout: cfg.Agent.ToolTimeout,
		},
	}, logger, metrics)

	sessionRegistry := sessions.NewRegistry(logger, metrics)

	srv, err := server.New(server.Options{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.HTTPPort,
		Loop:     loop,
		Sessions: sessionRegistry,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "bolagsagent started", "tools", len(registry.List()))

	<-ctx.Done()
	logger.Info(context.Background(), "shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http server shutdown error", "error", err)
	}

	logger.Info(context.Background(), "bolagsagent stopped")
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for the agent service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	LLM      LLMConfig      `yaml:"llm"`
	Agent    AgentConfig    `yaml:"agent"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
}

// UpstreamConfig holds the Bolagsverket open-data API connection settings.
// ClientID and ClientSecret fall back to the BOLAGSVERKET_CLIENT_ID and
// BOLAGSVERKET_CLIENT_SECRET environment variables when unset.
type UpstreamConfig struct {
	BaseURL         string        `yaml:"base_url"`
	TokenURL        string        `yaml:"token_url"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	Scope           string        `yaml:"scope"`
	Timeout         time.Duration `yaml:"timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	EnableThinking bool    `yaml:"enable_thinking"`
	ThinkingBudget int     `yaml:"thinking_budget"`
}

type AgentConfig struct {
	MaxIterations  int           `yaml:"max_iterations"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	ToolTimeout    time.Duration `yaml:"tool_timeout"`
	SystemPrompt   string        `yaml:"system_prompt"`

	// StreamToolInput streams partial tool argument fragments to clients
	// as the model produces them. Disable for coarser event granularity.
	StreamToolInput bool `yaml:"stream_tool_input"`
}

type ToolsConfig struct {
	Memory MemoryConfig `yaml:"memory"`
}

// MemoryConfig enables the persistent notes tool backed by SQLite.
type MemoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the configuration file. Environment variable
// references in the file ($VAR or ${VAR}) are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default creates a configuration from environment variables alone,
// used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://portal.api.bolagsverket.se/vardefulla-datamangder/v1"
	}
	if cfg.Upstream.TokenURL == "" {
		cfg.Upstream.TokenURL = "https://portal.api.bolagsverket.se/oauth2/token"
	}
	if cfg.Upstream.ClientID == "" {
		cfg.Upstream.ClientID = os.Getenv("BOLAGSVERKET_CLIENT_ID")
	}
	if cfg.Upstream.ClientSecret == "" {
		cfg.Upstream.ClientSecret = os.Getenv("BOLAGSVERKET_CLIENT_SECRET")
	}
	if cfg.Upstream.Scope == "" {
		cfg.Upstream.Scope = "vardefulla-datamangder:read vardefulla-datamangder:ping"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}
	if cfg.Upstream.DownloadTimeout == 0 {
		cfg.Upstream.DownloadTimeout = 60 * time.Second
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}

	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 10
	}
	if cfg.Agent.MaxConcurrency == 0 {
		cfg.Agent.MaxConcurrency = 5
	}
	if cfg.Agent.ToolTimeout == 0 {
		cfg.Agent.ToolTimeout = 30 * time.Second
	}

	if cfg.Tools.Memory.Path == "" {
		cfg.Tools.Memory.Path = "bolagsagent.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks that the configuration is usable for serving.
func (c *Config) Validate() error {
	var missing []string
	if c.Upstream.ClientID == "" {
		missing = append(missing, "upstream.client_id")
	}
	if c.Upstream.ClientSecret == "" {
		missing = append(missing, "upstream.client_secret")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be positive")
	}
	return nil
}

package config

import (
	"flag"
	"fmt"
	"os"
)

const (
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
)

// Config holds application configuration
type Config struct {
	Backend   string // LLM provider: anthropic or openai
	Model     string // Provider model override; empty selects the provider default
	Addr      string // Listen address for the HTTP server
	DBPath    string // SQLite database file for session persistence
	StaticDir string // Directory serving the browser front-end; empty disables it
	MaxTokens int    // Per-turn completion token limit
	Debug     bool
}

// Load parses command-line flags into a Config, with environment variables
// as fallback for deployment settings.
func Load() (*Config, error) {
	cfg := &Config{}
	flag.StringVar(&cfg.Backend, "backend", envOr("DEEPVALUE_BACKEND", BackendAnthropic), "LLM backend: anthropic or openai")
	flag.StringVar(&cfg.Model, "model", os.Getenv("DEEPVALUE_MODEL"), "model override for the selected backend")
	flag.StringVar(&cfg.Addr, "addr", envOr("DEEPVALUE_ADDR", ":8080"), "HTTP listen address")
	flag.StringVar(&cfg.DBPath, "db", envOr("DEEPVALUE_DB", "deepvalue.db"), "SQLite database path")
	flag.StringVar(&cfg.StaticDir, "static", envOr("DEEPVALUE_STATIC", "static"), "static assets directory (empty to disable)")
	flag.IntVar(&cfg.MaxTokens, "max-tokens", 4096, "completion token limit per turn")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.Parse()

	switch cfg.Backend {
	case BackendAnthropic, BackendOpenAI:
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, BackendAnthropic, BackendOpenAI)
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("max-tokens must be positive, got %d", cfg.MaxTokens)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

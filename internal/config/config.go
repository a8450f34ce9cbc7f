// Package config loads the inboxpilot configuration from a YAML file with
// environment-variable overrides. Values are injected into components at
// construction time; nothing reads configuration ambiently.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the override variables, e.g.
// INBOXPILOT_OLLAMA_MODEL=llama3 overrides ollama.model.
const envPrefix = "INBOXPILOT_"

// Config holds all configuration for inboxpilot.
type Config struct {
	Triage  TriageConfig  `koanf:"triage"`
	Storage StorageConfig `koanf:"storage"`
	Gmail   GmailConfig   `koanf:"gmail"`
	Ollama  OllamaConfig  `koanf:"ollama"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// TriageConfig drives the rule engine and the triage pass.
type TriageConfig struct {
	MaxEmails          int     `koanf:"max_emails"`           // per triage pass
	DebugMode          bool    `koanf:"debug_mode"`           // record debug-log entries
	DebugRetentionDays int     `koanf:"debug_retention_days"` // debug-log pruning window
	SaveForLater       bool    `koanf:"save_for_later"`       // defer summaries to a placeholder
	SummaryScorePoints float64 `koanf:"summary_score_points"` // awarded per request_summary
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	DatabasePath string `koanf:"database_path"` // SQLite database path
}

// GmailConfig holds the OAuth client and token locations.
type GmailConfig struct {
	CredentialsFile string `koanf:"credentials_file"` // OAuth client secret JSON
	TokenFile       string `koanf:"token_file"`       // cached user token
}

// OllamaConfig holds the local LLM endpoint used for summaries.
type OllamaConfig struct {
	URL     string `koanf:"url"`
	Model   string `koanf:"model"`
	Timeout string `koanf:"timeout"` // e.g. "60s"
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"` // host:port
}

// DefaultConfig returns a configuration with sensible defaults. Paths are
// rooted under the user's home directory.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".config", "inboxpilot")

	return &Config{
		Triage: TriageConfig{
			MaxEmails:          25,
			DebugMode:          false,
			DebugRetentionDays: 7,
			SaveForLater:       false,
			SummaryScorePoints: 1,
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(base, "inboxpilot.db"),
		},
		Gmail: GmailConfig{
			CredentialsFile: filepath.Join(base, "credentials.json"),
			TokenFile:       filepath.Join(base, "token.json"),
		},
		Ollama: OllamaConfig{
			URL:     "http://localhost:11434",
			Model:   "llama3.2",
			Timeout: "60s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9090",
		},
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "inboxpilot", "config.yaml")
}

// Load reads configuration from a YAML file, then applies INBOXPILOT_*
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// INBOXPILOT_TRIAGE_MAX_EMAILS -> triage.max_emails
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(s, "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for mistakes a user could plausibly
// make; it does not verify that credential files exist since the auth
// command creates them.
func (c *Config) Validate() error {
	if c.Triage.MaxEmails < 1 {
		return fmt.Errorf("triage.max_emails must be at least 1")
	}
	if c.Triage.DebugRetentionDays < 0 {
		return fmt.Errorf("triage.debug_retention_days cannot be negative")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is required")
	}
	if c.Ollama.URL == "" {
		return fmt.Errorf("ollama.url is required")
	}
	if c.Ollama.Timeout != "" {
		d, err := time.ParseDuration(c.Ollama.Timeout)
		if err != nil {
			return fmt.Errorf("ollama.timeout is invalid: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("ollama.timeout must be positive (got: %s)", c.Ollama.Timeout)
		}
	}

	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[c.Logging.Level] {
			return fmt.Errorf("logging.level must be one of: debug, info, warn, error (got: %s)", c.Logging.Level)
		}
	}
	if c.Logging.Format != "" {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[c.Logging.Format] {
			return fmt.Errorf("logging.format must be one of: json, text (got: %s)", c.Logging.Format)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}
	return nil
}

// OllamaTimeout parses the configured timeout, falling back to one minute.
func (c *Config) OllamaTimeout() time.Duration {
	d, err := time.ParseDuration(c.Ollama.Timeout)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

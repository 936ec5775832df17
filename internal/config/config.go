// Package config holds the immutable kommorelay configuration.
//
// Configuration is resolved once at startup: an optional YAML file is read
// first, then environment variables override it. The resulting Config value
// is passed explicitly into each component and never mutated afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Outgoing store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreOff    = "off"
)

// DefaultTechnicalPhrases is the denylist applied when none is configured.
// Case-insensitive substring match against message text.
var DefaultTechnicalPhrases = []string{
	"moved to",
	"field value",
	"invoice",
	"robot",
	"delivered",
}

// Config represents the complete kommorelay configuration.
type Config struct {
	Port int `yaml:"port" env:"PORT"`

	// Kommo CRM access
	KommoDomain string `yaml:"kommo_domain" env:"KOMMO_DOMAIN"`
	KommoToken  string `yaml:"kommo_token" env:"KOMMO_TOKEN"`

	// Webhook signature verification. RequireSignature rejects requests that
	// carry no X-Signature header; it is only meaningful with a secret set.
	KommoSecret      string `yaml:"kommo_secret" env:"KOMMO_SECRET"`
	RequireSignature bool   `yaml:"require_signature" env:"REQUIRE_SIGNATURE"`

	// Analysis service
	AnalyzeURL string `yaml:"analyze_url" env:"ANALYZE_URL"`

	// Chat history enrichment
	HistoryEnabled bool `yaml:"history_enabled" env:"HISTORY_ENABLED"`
	HistoryLimit   int  `yaml:"history_limit" env:"HISTORY_LIMIT"`

	// Outbound HTTP deadline shared by the analysis and CRM clients.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	MaxBodySize int64  `yaml:"max_body_size" env:"MAX_BODY_SIZE"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`

	// TechnicalPhrases overrides the built-in denylist of system-message
	// markers. Matching is case-insensitive substring.
	TechnicalPhrases []string `yaml:"technical_phrases" env:"TECHNICAL_PHRASES" envSeparator:","`

	Outgoing OutgoingConfig `yaml:"outgoing"`
}

// OutgoingConfig defines the side-channel sink for outgoing messages.
type OutgoingConfig struct {
	Store string `yaml:"store" env:"OUTGOING_STORE"`
	Path  string `yaml:"path" env:"OUTGOING_PATH"`
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		Port:             10000,
		AnalyzeURL:       "https://mist-chat-widget.vercel.app/api/analyze",
		HistoryEnabled:   true,
		HistoryLimit:     10,
		RequestTimeout:   15 * time.Second,
		MaxBodySize:      1 << 20,
		LogLevel:         "INFO",
		TechnicalPhrases: DefaultTechnicalPhrases,
		Outgoing: OutgoingConfig{
			Store: StoreFile,
			Path:  "outgoing_messages.log",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if path is non-empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadUnchecked is Load without the fail-fast validation. The doctor uses it
// so a broken config still produces a full report instead of one error.
func LoadUnchecked(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks invariants that make the relay unable to start at all.
// Softer issues are surfaced by the doctor instead.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.KommoDomain == "" {
		return fmt.Errorf("kommo_domain is required (KOMMO_DOMAIN)")
	}
	if c.KommoToken == "" {
		return fmt.Errorf("kommo_token is required (KOMMO_TOKEN)")
	}
	if c.AnalyzeURL == "" {
		return fmt.Errorf("analyze_url is required")
	}
	if c.RequireSignature && c.KommoSecret == "" {
		return fmt.Errorf("require_signature is set but kommo_secret is empty")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	switch c.Outgoing.Store {
	case StoreFile, StoreSQLite:
		if c.Outgoing.Path == "" {
			return fmt.Errorf("outgoing.path is required for store %q", c.Outgoing.Store)
		}
	case StoreOff:
	default:
		return fmt.Errorf("unknown outgoing.store %q (expected file, sqlite, or off)", c.Outgoing.Store)
	}
	return nil
}

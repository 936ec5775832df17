package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KOMMO_DOMAIN", "example.kommo.com")
	t.Setenv("KOMMO_TOKEN", "tok")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Port)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.True(t, cfg.HistoryEnabled)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StoreFile, cfg.Outgoing.Store)
	assert.Equal(t, DefaultTechnicalPhrases, cfg.TechnicalPhrases)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("KOMMO_DOMAIN", "example.kommo.com")
	t.Setenv("KOMMO_TOKEN", "tok")

	path := writeConfigFile(t, `
port: 9000
history_limit: 25
technical_phrases: ["auto-reply"]
outgoing:
  store: sqlite
  path: outgoing.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, []string{"auto-reply"}, cfg.TechnicalPhrases)
	assert.Equal(t, StoreSQLite, cfg.Outgoing.Store)
	assert.Equal(t, "outgoing.db", cfg.Outgoing.Path)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("KOMMO_DOMAIN", "example.kommo.com")
	t.Setenv("KOMMO_TOKEN", "tok")
	t.Setenv("PORT", "8081")
	t.Setenv("TECHNICAL_PHRASES", "robot,delivered")

	path := writeConfigFile(t, "port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"robot", "delivered"}, cfg.TechnicalPhrases)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.KommoDomain = "example.kommo.com"
		cfg.KommoToken = "tok"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing domain",
			mutate:  func(c *Config) { c.KommoDomain = "" },
			wantErr: "kommo_domain",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.KommoToken = "" },
			wantErr: "kommo_token",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "require signature without secret",
			mutate:  func(c *Config) { c.RequireSignature = true },
			wantErr: "kommo_secret is empty",
		},
		{
			name: "require signature with secret",
			mutate: func(c *Config) {
				c.RequireSignature = true
				c.KommoSecret = "s3cr3t"
			},
		},
		{
			name:    "bad history limit",
			mutate:  func(c *Config) { c.HistoryLimit = 0 },
			wantErr: "history_limit",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Outgoing.Store = "kafka" },
			wantErr: "unknown outgoing.store",
		},
		{
			name: "store off without path is fine",
			mutate: func(c *Config) {
				c.Outgoing.Store = StoreOff
				c.Outgoing.Path = ""
			},
		},
		{
			name: "file store without path",
			mutate: func(c *Config) {
				c.Outgoing.Path = ""
			},
			wantErr: "outgoing.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

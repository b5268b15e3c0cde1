package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/utils"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.Store.Type = "mongo" },
			wantErr: true,
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Store.Type = "postgres" },
			wantErr: true,
		},
		{
			name: "postgres with url",
			mutate: func(c *Config) {
				c.Store.Type = "postgres"
				c.Store.Postgres.URL = "postgres://localhost:5432/tonetrace"
			},
			wantErr: false,
		},
		{
			name: "etcd without endpoints",
			mutate: func(c *Config) {
				c.Store.Type = "etcd"
				c.Store.Etcd.Endpoints = nil
			},
			wantErr: true,
		},
		{
			name: "redis profiles need an explicit archive type",
			mutate: func(c *Config) {
				c.Store.Type = "redis"
			},
			wantErr: true,
		},
		{
			name: "redis profiles with sqlite archive",
			mutate: func(c *Config) {
				c.Store.Type = "redis"
				c.Store.Submissions.Type = "sqlite"
			},
			wantErr: false,
		},
		{
			name: "redis profiles with archive disabled",
			mutate: func(c *Config) {
				c.Store.Type = "redis"
				c.Store.Submissions.Enabled = false
			},
			wantErr: false,
		},
		{
			name: "postgres archive without url",
			mutate: func(c *Config) {
				c.Store.Submissions.Type = "postgres"
			},
			wantErr: true,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Store.MaxRetries = 0 },
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Queue.Enabled = true
				c.Queue.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "disabled queue is not validated",
			mutate: func(c *Config) {
				c.Queue.Type = "carrier-pigeon"
			},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "negative anomaly threshold",
			mutate:  func(c *Config) { c.Anomaly.Formality = -1 },
			wantErr: true,
		},
		{
			name:    "unknown mean mode",
			mutate:  func(c *Config) { c.Profile.MeanMode = "median" },
			wantErr: true,
		},
		{
			name:    "max text length below min",
			mutate:  func(c *Config) { c.Analysis.MinTextLength, c.Analysis.MaxTextLength = 50, 10 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPPort != DefaultConfig().Server.HTTPPort {
		t.Errorf("Expected default port, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Anomaly != DefaultConfig().Anomaly {
		t.Errorf("Expected default anomaly thresholds, got %+v", cfg.Anomaly)
	}
	if !cfg.Store.Submissions.Enabled {
		t.Error("Expected submission archive enabled by default")
	}
}

func TestSubmissionStoreType(t *testing.T) {
	tests := []struct {
		store, submissions string
		want               utils.StoreType
	}{
		{"", "", utils.StoreTypeMemory},
		{"sqlite", "", utils.StoreTypeSQLite},
		{"redis", "postgres", utils.StoreTypePostgres},
		{"postgres", "memory", utils.StoreTypeMemory},
	}
	for _, tt := range tests {
		c := StoreConfig{Type: tt.store, Submissions: SubmissionsConfig{Type: tt.submissions}}
		if got := c.SubmissionStoreType(); got != tt.want {
			t.Errorf("SubmissionStoreType(%q, %q) = %q, want %q", tt.store, tt.submissions, got, tt.want)
		}
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  http_port: 6000
store:
  type: sqlite
  sqlite:
    path: /tmp/profiles.db
anomaly:
  formality: 0.25
profile:
  mean_mode: observations
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TONETRACE_STORE_MAX_RETRIES", "7")
	t.Setenv("TONETRACE_STORE_TIMEOUT", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 6000 {
		t.Errorf("Expected port 6000, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.SQLite.Path != "/tmp/profiles.db" {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Store.MaxRetries != 7 {
		t.Errorf("Expected env override max_retries=7, got %d", cfg.Store.MaxRetries)
	}
	if cfg.Store.Timeout != 250*time.Millisecond {
		t.Errorf("Expected env override timeout=250ms, got %v", cfg.Store.Timeout)
	}
	if cfg.Anomaly.Formality != 0.25 {
		t.Errorf("Expected formality threshold 0.25, got %v", cfg.Anomaly.Formality)
	}
	if cfg.Anomaly.Sentiment != 0.20 {
		t.Errorf("Expected default sentiment threshold, got %v", cfg.Anomaly.Sentiment)
	}
	if cfg.MeanMode() != profile.MeanOverObservations {
		t.Errorf("Expected observations mean mode, got %v", cfg.MeanMode())
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  http_port: 99999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for out-of-range port")
	}
	if cfg := LoadOrDefault(path); cfg.Server.HTTPPort != DefaultConfig().Server.HTTPPort {
		t.Errorf("Expected LoadOrDefault to fall back, got port %d", cfg.Server.HTTPPort)
	}
}

func TestHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetServerAddress(); got != "0.0.0.0:5580" {
		t.Errorf("GetServerAddress() = %q", got)
	}
	if !cfg.IsProduction() {
		t.Error("Expected default config to be production")
	}

	cfg.Analysis.Extractors = []string{"hedging"}
	if !cfg.Analysis.ExtractorEnabled("hedging") || cfg.Analysis.ExtractorEnabled("tone") {
		t.Error("ExtractorEnabled did not honour the allow list")
	}
	cfg.Analysis.Extractors = nil
	if !cfg.Analysis.ExtractorEnabled("tone") {
		t.Error("Expected every extractor enabled by default")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TONETRACE_STORE_TYPE=sqlite\nTONETRACE_STORE_SQLITE_PATH=/tmp/env.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TONETRACE_STORE_TYPE", "")
	os.Unsetenv("TONETRACE_STORE_TYPE")
	t.Cleanup(func() { os.Unsetenv("TONETRACE_STORE_SQLITE_PATH") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.SQLite.Path != "/tmp/env.db" {
		t.Errorf("Expected .env values, got %+v", cfg.Store)
	}
}

func TestLoadEnvFiles_ExplicitMissingFileIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvFileVar, "does-not-exist.env")
	if err := LoadEnvFiles(); err != nil {
		t.Errorf("LoadEnvFiles() error = %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PAYMENTS_SERVICE_URL", "https://payments.internal")
	t.Setenv("PAYMENTS_TOKEN_SECRET", "shh")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "EASEBUZZ", cfg.Gateway.Name)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, "local", cfg.Secrets.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Secrets.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Reconciliation.RunTimeout)
	assert.Empty(t, cfg.Reconciliation.SchoolIDs)
	assert.True(t, cfg.Reconciliation.ScheduleEnabled)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("EASEBUZZ_TIMEOUT", "12s")
	t.Setenv("RECON_SCHOOL_IDS", "school-a, school-b,,")
	t.Setenv("RECON_SCHEDULE_ENABLED", "false")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 12*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, []string{"school-a", "school-b"}, cfg.Reconciliation.SchoolIDs)
	assert.False(t, cfg.Reconciliation.ScheduleEnabled)
	assert.Equal(t, int32(10), cfg.Database.MaxConns, "unparseable values fall back to the default")
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recon.yaml")
	yamlDoc := `
environment: staging
server:
  port: 7000
  cron_secret: from-file
gateway:
  base_url: https://testdashboard.easebuzz.in
  timeout: 45s
payments:
  base_url: https://payments.staging
  token_secret: file-secret
reconciliation:
  school_ids: [school-x]
  run_timeout: 20m
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv(ConfigFileEnv, path)
	// Environment wins over the file
	t.Setenv("CRON_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Server.CronSecret)
	assert.Equal(t, "https://testdashboard.easebuzz.in", cfg.Gateway.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "file-secret", cfg.Payments.TokenSecret)
	assert.Equal(t, []string{"school-x"}, cfg.Reconciliation.SchoolIDs)
	assert.Equal(t, 20*time.Minute, cfg.Reconciliation.RunTimeout)
	// Untouched sections keep their defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing_payments_url", func(c *Config) { c.Payments.BaseURL = "" }, "PAYMENTS_SERVICE_URL"},
		{"missing_token_secret", func(c *Config) { c.Payments.TokenSecret = "" }, "PAYMENTS_TOKEN_SECRET"},
		{"zero_retries", func(c *Config) { c.Gateway.MaxRetries = 0 }, "EASEBUZZ_MAX_RETRIES"},
		{"unknown_backend", func(c *Config) { c.Secrets.Backend = "gcp" }, "SECRET_MANAGER"},
		{"vault_without_address", func(c *Config) { c.Secrets.Backend = "vault" }, "VAULT_ADDR"},
		{"production_without_cron_secret", func(c *Config) { c.Environment = "production" }, "CRON_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Payments.BaseURL = "https://payments.internal"
			cfg.Payments.TokenSecret = "shh"
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "recon", Password: "p@ss word", Database: "recon_service", SSLMode: "require"}
	assert.Equal(t, "postgres://recon:p%40ss%20word@db:5432/recon_service?sslmode=require", db.ConnectionString())
}

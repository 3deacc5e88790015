// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: lead-qualifier-test\n")

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "lead-qualifier-test", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "leads", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "none", cfg.APIs.GenAI.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "lead-qualifier-test", cfg.Observability.ServiceName)
	assert.Equal(t, 2*time.Minute, GetDuration(cfg.Qualification.LockTimeout))
}

func TestLoadFromFile_FullConfig(t *testing.T) {
	t.Setenv("TEST_PG_PASSWORD", "s3cret")
	path := writeConfig(t, `
database:
  driver: postgres
  postgres:
    host: db
    database: leads
    user: app
    password: ${TEST_PG_PASSWORD}
  redis:
    enabled: true
    address: redis:6379
apis:
  genai:
    provider: genai
    base_url: http://genai:8000
qualification:
  calendly_link: https://cal.example.com/demo
  clamp_model_score: true
workers:
  qualify-lead-message:
    enabled: true
`)

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "host=db port=5432")
	assert.True(t, cfg.Qualification.ClampModelScore)
	assert.Equal(t, 5, cfg.Workers["qualify-lead-message"].MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "qualify-lead-message"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("CALENDLY_LINK", "https://cal.example.com/env")
	path := writeConfig(t, "database:\n  driver: memory\n")

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "https://cal.example.com/env", cfg.Qualification.CalendlyLink)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: mongo\n"},
		{"postgres without host", "database:\n  driver: postgres\n"},
		{"genai without url", "apis:\n  genai:\n    provider: genai\n"},
		{"unknown provider", "apis:\n  genai:\n    provider: gpt\n"},
		{"bad calendly", "qualification:\n  calendly_link: not-a-url\n"},
		{"redis without address", "database:\n  redis:\n    enabled: true\n"},
		{"camunda without broker", "camunda:\n  enabled: true\n"},
		{"admin auth without keycloak", "server:\n  admin_auth: true\n"},
		{"sns without topic", "integrations:\n  aws:\n    sns:\n      enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestGetWorkerConfig_Default(t *testing.T) {
	wc := GetWorkerConfig(&Config{}, "notify-hot-lead")

	assert.True(t, wc.Enabled)
	assert.Equal(t, 3, wc.MaxRetries)
}

func TestGetWorkerConfigTimeout(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"qualify-lead-message": {Enabled: true, Timeout: 90000},
		"sync-crm-lead":        {Enabled: false},
	}}

	assert.Equal(t, 90*time.Second, GetWorkerConfigTimeout(cfg, "qualify-lead-message", time.Second))
	assert.Equal(t, time.Second, GetWorkerConfigTimeout(cfg, "sync-crm-lead", time.Second))
	assert.Equal(t, 2*time.Second, GetWorkerConfigTimeout(cfg, "unknown", 2*time.Second))
	assert.False(t, IsWorkerEnabled(cfg, "sync-crm-lead"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates Load from the developer's shell and any .env file.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{
		"FIELDLOG_CONFIG", "FIELDLOG_ADDR", "FIELDLOG_STORE", "FIELDLOG_LLM_PROVIDER",
		"FIELDLOG_LLM_MODEL", "FIELDLOG_LOG_LEVEL", "FIELDLOG_CORS_ORIGINS", "FIELDLOG_SEED",
		"GROQ_API_KEY", "DATABASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, ProviderGroq, cfg.LLMProvider)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLMModel)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "fieldlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store: postgres
postgres_url: postgres://file
llm_provider: ollama
log_level: debug
cors_origins: ["https://crm.example"]
`), 0o600))
	t.Setenv("FIELDLOG_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("FIELDLOG_SEED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://env", cfg.PostgresURL)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, "llama3.1", cfg.LLMModel)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://crm.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.Seed)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("FIELDLOG_LLM_PROVIDER=gemini\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FIELDLOG_LLM_PROVIDER") })
	require.NoError(t, os.Unsetenv("FIELDLOG_LLM_PROVIDER"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, "GEMINI_API_KEY", cfg.LLMKeyEnv())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIELDLOG_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, `unknown store "mongo"`},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, "DATABASE_URL"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "cohere" }, `unknown LLM provider "cohere"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("interaction logged", "id", "int-1")

	assert.Contains(t, stderr.String(), "interaction logged")
	assert.Contains(t, file.String(), `"id":"int-1"`)
	assert.NotContains(t, file.String(), "hidden")
}

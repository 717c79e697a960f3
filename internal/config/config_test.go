package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30, cfg.ForecastDays)
	assert.Equal(t, "0 7 * * *", cfg.CrisisScanSchedule)

	key, err := cfg.EncryptionKeyBytes()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestNewConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oasis.yaml")
	err := os.WriteFile(path, []byte(`
port: "9000"
forecast_days: 45
llm:
  model: local-model
directory:
  url: https://directory.example.org/list
`), 0o600)
	require.NoError(t, err)

	t.Setenv(configPathEnv, path)
	t.Setenv("PORT", "9100")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, "env overrides file")
	assert.Equal(t, 45, cfg.ForecastDays)
	assert.Equal(t, "local-model", cfg.LLM.Model)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.LLM.Endpoint, "unset keys keep defaults")
	assert.Equal(t, "https://directory.example.org/list", cfg.Directory.URL)
	assert.Equal(t, ".resource", cfg.Directory.ItemSelector)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "empty db", env: map[string]string{"DB_CONN": ""}},
		{name: "empty jwt", env: map[string]string{"JWT_SECRET": ""}},
		{name: "empty hmac", env: map[string]string{"HMAC_SECRET": ""}},
		{name: "bad key", env: map[string]string{"ENCRYPTION_KEY": "not-hex"}},
		{name: "short key", env: map[string]string{"ENCRYPTION_KEY": "abcd"}},
		{name: "horizon", env: map[string]string{"FORECAST_DAYS": "365"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := NewConfig()
	assert.Error(t, err)
}

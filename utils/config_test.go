package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads; empty counts as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvTelegramToken, EnvOpenAIKey, EnvOpenAIBaseURL, EnvAdminID,
		EnvDataDir, EnvStorageBackend, EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvTelegramToken, "123:abc")
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvAdminID, "42")
}

func TestLoadConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	config, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", config.Telegram.Token)
	assert.Equal(t, "sk-test", config.OpenAI.APIKey)
	assert.Equal(t, int64(42), config.AdminID)
	assert.Equal(t, "https://api.openai.com/v1", config.OpenAI.BaseURL)
	assert.Equal(t, 100, config.Stream.ChunkSize)
	assert.Equal(t, 500, config.Stream.DelayMS)
	assert.Equal(t, "json", config.Data.Backend)
	assert.True(t, filepath.IsAbs(config.Data.Dir))
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantMsg string
	}{
		{"no token", EnvTelegramToken, "TELEGRAM_BOT_TOKEN is required"},
		{"no api key", EnvOpenAIKey, "OPENAI_API_KEY is required"},
		{"no admin", EnvAdminID, "ADMIN_ID is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setRequired(t)
			t.Setenv(tt.unset, "")

			_, err := LoadConfig("", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_ZeroAdminRejected(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv(EnvAdminID, "0")

	_, err := LoadConfig("", "")
	assert.ErrorContains(t, err, "ADMIN_ID")
}

func TestLoadConfig_BadAdminID(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv(EnvAdminID, "root")

	_, err := LoadConfig("", "")
	assert.ErrorContains(t, err, "invalid ADMIN_ID")
}

func TestLoadConfig_FileThenEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"telegram": {"token": "from-file"},
		"openai": {"api_key": "file-key", "base_url": "https://llm.example/v1", "timeout": 30},
		"admin_id": 5,
		"data": {"dir": "`+filepath.ToSlash(dir)+`", "backend": "sqlite"},
		"stream": {"chunk_size": 50, "delay_ms": 0}
	}`), 0644))

	t.Setenv(EnvOpenAIKey, "env-key")

	config, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, "from-file", config.Telegram.Token)
	assert.Equal(t, "env-key", config.OpenAI.APIKey)
	assert.Equal(t, "https://llm.example/v1", config.OpenAI.BaseURL)
	assert.Equal(t, int64(5), config.AdminID)
	assert.Equal(t, "sqlite", config.Data.Backend)
	assert.Equal(t, 50, config.Stream.ChunkSize)
	assert.Equal(t, 0, config.Stream.DelayMS)
	assert.Equal(t, 30, config.OpenAI.Timeout)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills variables that are not present at all
	for _, key := range []string{EnvTelegramToken, EnvOpenAIKey, EnvAdminID} {
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TELEGRAM_BOT_TOKEN=tok\nOPENAI_API_KEY=key\nADMIN_ID=77\n"), 0644))
	t.Cleanup(func() {
		for _, key := range []string{EnvTelegramToken, EnvOpenAIKey, EnvAdminID} {
			os.Unsetenv(key)
		}
	})

	config, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "tok", config.Telegram.Token)
	assert.Equal(t, int64(77), config.AdminID)
}

func TestLoadConfig_MissingEnvFileIsFine(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	_, err := LoadConfig("", filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestValidate_Backend(t *testing.T) {
	config := DefaultConfig()
	config.Telegram.Token = "t"
	config.OpenAI.APIKey = "k"
	config.AdminID = 1
	require.NoError(t, config.Validate())

	config.Data.Backend = "postgres"
	assert.ErrorContains(t, config.Validate(), "Backend")
}

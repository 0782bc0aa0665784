package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, "deterministic", cfg.Embedding.Provider)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvDefaultsToUnlimitedWriteTimeout(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeWriteTimeout(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.WriteTimeout = -1 * time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Embedding.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresAPIKeyForOpenAI(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""
	assert.Error(t, cfg.Validate())
	cfg.Embedding.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOrFileEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/codesage.yaml"
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\nembedding:\n  provider: ollama\n"), 0o644))

	t.Setenv("CODESAGE_EMBEDDING_PROVIDER", "openai")
	cfg := LoadFromEnvOrFile(path)

	assert.Equal(t, "/from/file", cfg.DataDir)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
}

func TestLoadFromEnvOrFileMissingFileFallsBackToEnv(t *testing.T) {
	cfg := LoadFromEnvOrFile("/does/not/exist.yaml")
	assert.Equal(t, "./data", cfg.DataDir)
}

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kb_rag/internal/domain"
)

func TestInit_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/kb-data")

	var cfg Config
	require.NoError(t, Init(&cfg))

	assert.Equal(t, "./knowledge-base", cfg.KnowledgeDir)
	assert.Equal(t, filepath.Join("/tmp/kb-data", "vector_db"), cfg.Index.Dir)
	assert.Equal(t, filepath.Join("/tmp/kb-data", "manifest.json"), cfg.ManifestFile)
	assert.Equal(t, BackendChromem, cfg.Index.Backend)
	assert.Equal(t, ProviderOllama, cfg.Embedding.Provider)
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, 10*time.Second, cfg.Retry.MinDelay)
	assert.Equal(t, 240*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Embedding.CacheTTL)
}

func TestInit_Overrides(t *testing.T) {
	t.Setenv("INDEX_DIR", "/srv/index")
	t.Setenv("EMBED_PROVIDER", "OpenAI")
	t.Setenv("TOP_K", "4")
	t.Setenv("RETRY_MIN_DELAY", "1s")
	t.Setenv("RETRY_MAX_DELAY", "8s")

	var cfg Config
	require.NoError(t, Init(&cfg))

	assert.Equal(t, "/srv/index", cfg.Index.Dir)
	assert.Equal(t, ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Index.Backend = "faiss" }},
		{"pgvector without dsn", func(c *Config) { c.Index.Backend = BackendPgvector }},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "hf" }},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "claude" }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"inverted delays", func(c *Config) { c.Retry.MaxDelay = time.Second; c.Retry.MinDelay = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			require.NoError(t, Init(&cfg))
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
		})
	}
}

func TestUsesOllama(t *testing.T) {
	cfg := Config{OllamaURL: "http://localhost:11434"}
	cfg.Embedding.Provider = ProviderOllama
	assert.True(t, cfg.UsesOllama())

	cfg.Embedding.Provider = ProviderOpenAI
	cfg.LLM.Provider = ProviderOpenAI
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	assert.False(t, cfg.UsesOllama())

	cfg.LLM.BaseURL = "http://localhost:11434/v1"
	assert.True(t, cfg.UsesOllama())
}

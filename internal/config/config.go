package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"kb_rag/internal/domain"
)

const (
	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	KnowledgeDir string `env:"KB_DIR" envDefault:"./knowledge-base"`
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`

	Index     IndexConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Retry     RetryConfig

	OllamaURL  string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaPull bool   `env:"OLLAMA_PULL" envDefault:"true"`

	OpenAIKey string `env:"OPENAI_API_KEY"`
	GeminiKey string `env:"GEMINI_API_KEY"`

	TopK             int    `env:"TOP_K" envDefault:"10"`
	SystemPromptFile string `env:"SYSTEM_PROMPT_FILE"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	ManifestFile string
}

type IndexConfig struct {
	Backend    string `env:"INDEX_BACKEND" envDefault:"chromem"`
	Dir        string `env:"INDEX_DIR"`
	Compress   bool   `env:"INDEX_COMPRESS" envDefault:"false"`
	Collection string `env:"INDEX_COLLECTION" envDefault:"knowledge"`
	PgDSN      string `env:"PG_DSN"`
	PgTable    string `env:"PG_TABLE" envDefault:"kb_chunks"`
}

type EmbeddingConfig struct {
	Provider  string        `env:"EMBED_PROVIDER" envDefault:"ollama"`
	Model     string        `env:"EMBED_MODEL" envDefault:"nomic-embed-text"`
	BaseURL   string        `env:"EMBED_BASE_URL"`
	BatchSize int           `env:"EMBED_BATCH_SIZE" envDefault:"32"`
	RPS       float64       `env:"EMBED_RPS" envDefault:"0"`
	Burst     int           `env:"EMBED_BURST" envDefault:"1"`
	CacheSize int           `env:"EMBED_CACHE_SIZE" envDefault:"1024"`
	CacheTTL  time.Duration `env:"EMBED_CACHE_TTL" envDefault:"1h"`
}

type LLMConfig struct {
	Provider    string        `env:"LLM_PROVIDER" envDefault:"openai"`
	Model       string        `env:"LLM_MODEL" envDefault:"gpt-4.1-nano"`
	BaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Temperature float32       `env:"LLM_TEMPERATURE" envDefault:"0"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
}

type RetryConfig struct {
	MinDelay    time.Duration `env:"RETRY_MIN_DELAY" envDefault:"10s"`
	MaxDelay    time.Duration `env:"RETRY_MAX_DELAY" envDefault:"240s"`
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"10"`
}

// Init читает переменные окружения, вычисляет производные пути и проверяет конфиг
func Init(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	cfg.applyDerived()
	return cfg.Validate()
}

func (c *Config) applyDerived() {
	if c.Index.Dir == "" {
		c.Index.Dir = filepath.Join(c.DataDir, "vector_db")
	}
	if c.ManifestFile == "" {
		c.ManifestFile = filepath.Join(c.DataDir, "manifest.json")
	}
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendChromem:
		if c.Index.Dir == "" {
			return fmt.Errorf("%w: INDEX_DIR is required for chromem backend", domain.ErrInvalidInput)
		}
	case BackendPgvector:
		if c.Index.PgDSN == "" {
			return fmt.Errorf("%w: PG_DSN is required for pgvector backend", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, c.Index.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidInput, c.LLM.Provider)
	}

	if c.TopK <= 0 {
		return fmt.Errorf("%w: TOP_K must be positive", domain.ErrInvalidInput)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive", domain.ErrInvalidInput)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("%w: RETRY_MAX_ATTEMPTS must be positive", domain.ErrInvalidInput)
	}
	if c.Retry.MinDelay < 0 || c.Retry.MaxDelay < c.Retry.MinDelay {
		return fmt.Errorf("%w: RETRY_MAX_DELAY must be >= RETRY_MIN_DELAY >= 0", domain.ErrInvalidInput)
	}
	return nil
}

// UsesOllama сообщает, нужен ли локальный Ollama для эмбеддингов или чата
func (c *Config) UsesOllama() bool {
	return c.Embedding.Provider == ProviderOllama || c.ChatUsesOllama()
}

// ChatUsesOllama - чат идёт через OpenAI-совместимый endpoint Ollama (/v1)
func (c *Config) ChatUsesOllama() bool {
	return c.OllamaURL != "" && c.LLM.Provider == ProviderOpenAI && strings.HasPrefix(c.LLM.BaseURL, strings.TrimRight(c.OllamaURL, "/"))
}

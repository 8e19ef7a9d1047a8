// Package embedding превращает тексты в векторы.
// Провайдеры (Ollama, OpenAI-совместимый API, Gemini) оборачиваются
// декораторами: кэш, батчи, ограничение частоты.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"kb_rag/internal/config"
	"kb_rag/internal/domain"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// Embedder возвращает по вектору на каждый текст, в том же порядке
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// New собирает Embedder по конфигу: провайдер -> лимит частоты -> батчи -> кэш
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Embedder, error) {
	ec := cfg.Embedding

	var base Embedder
	switch ec.Provider {
	case config.ProviderOllama:
		url := strings.TrimRight(cfg.OllamaURL, "/") + "/api"
		base = NewFunc(config.ProviderOllama, ec.Model, chromem.NewEmbeddingFuncOllama(ec.Model, url))
	case config.ProviderOpenAI:
		url := ec.BaseURL
		if url == "" {
			url = defaultOpenAIBaseURL
		}
		base = NewFunc(config.ProviderOpenAI, ec.Model,
			chromem.NewEmbeddingFuncOpenAICompat(strings.TrimRight(url, "/"), cfg.OpenAIKey, ec.Model, nil))
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg.GeminiKey, ec.Model)
		if err != nil {
			return nil, err
		}
		base = g
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, ec.Provider)
	}

	e := Throttled(base, ec.RPS, ec.Burst)
	e = Batched(e, ec.BatchSize, log)
	e = Cached(e, ec.CacheSize, ec.CacheTTL, log)

	log.Info("embedder ready",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("batch_size", ec.BatchSize),
		zap.Float64("rps", ec.RPS),
		zap.Int("cache_size", ec.CacheSize))
	return e, nil
}

// EmbeddingFunc отдаёт Embedder в виде функции для chromem-go
func EmbeddingFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("embedder %s returned %d vectors for 1 text", e.Model(), len(vecs))
		}
		return vecs[0], nil
	}
}

// EmbedOne - вектор для одного текста (вопроса)
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	return EmbeddingFunc(e)(ctx, text)
}

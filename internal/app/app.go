// Package app связывает загрузку, разбиение, эмбеддинги, индекс и генерацию
// в команды ingest / ask / chat / status.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"kb_rag/internal/chunker"
	"kb_rag/internal/config"
	"kb_rag/internal/embedding"
	"kb_rag/internal/index"
	"kb_rag/internal/llm"
	"kb_rag/internal/loader"
	"kb_rag/internal/rag"
	"kb_rag/internal/retry"
)

type App struct {
	cfg *config.Config
	log *zap.Logger

	loader   *loader.Loader
	chunker  chunker.Chunker
	embedder embedding.Embedder
	index    index.Index
	model    llm.ChatModel

	generator *rag.Generator

	in  io.Reader
	out io.Writer
}

// Option подменяет зависимость приложения (используется в тестах)
type Option func(*App)

func WithEmbedder(e embedding.Embedder) Option { return func(a *App) { a.embedder = e } }
func WithIndex(idx index.Index) Option         { return func(a *App) { a.index = idx } }
func WithChatModel(m llm.ChatModel) Option     { return func(a *App) { a.model = m } }

func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.out = in, out }
}

// New создаёт приложение. Модель чата создаётся лениво при первом вопросе,
// поэтому ingest не требует ключей LLM.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		log:     log,
		loader:  loader.New(cfg.KnowledgeDir, log),
		chunker: chunker.NewStructuralChunker(log),
		in:      os.Stdin,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.embedder == nil {
		e, err := embedding.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		a.embedder = e
	}
	if a.index == nil {
		idx, err := index.New(ctx, cfg, embedding.EmbeddingFunc(a.embedder), log)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		a.index = idx
	}

	return a, nil
}

// Init проверяет Ollama и скачивает недостающие модели, если он используется
func (a *App) Init(ctx context.Context) error {
	if !a.cfg.OllamaPull || !a.cfg.UsesOllama() {
		return nil
	}

	var models []string
	if a.cfg.Embedding.Provider == config.ProviderOllama {
		models = append(models, a.cfg.Embedding.Model)
	}
	if a.cfg.ChatUsesOllama() {
		models = append(models, a.cfg.LLM.Model)
	}
	if err := llm.EnsureOllamaModels(ctx, http.DefaultClient, a.cfg.OllamaURL, a.log, models...); err != nil {
		return fmt.Errorf("ollama model check failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	return a.index.Close()
}

// answerer собирает генератор ответов при первом обращении
func (a *App) answerer(ctx context.Context) (*rag.Generator, error) {
	if a.generator != nil {
		return a.generator, nil
	}

	if a.model == nil {
		m, err := llm.New(ctx, a.cfg, a.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		a.model = m
	}

	tmpl, err := rag.LoadTemplate(a.cfg.SystemPromptFile)
	if err != nil {
		return nil, err
	}

	policy := retry.New(a.cfg.Retry.MinDelay, a.cfg.Retry.MaxDelay, a.cfg.Retry.MaxAttempts, a.log)
	retriever := rag.NewRetriever(a.embedder, a.index, a.cfg.TopK, a.log)
	gen, err := rag.NewGenerator(retriever, a.model, policy, tmpl, a.log)
	if err != nil {
		return nil, err
	}
	a.generator = gen
	return gen, nil
}

// Package rag - поиск контекста и генерация ответа по базе знаний.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
	"kb_rag/internal/embedding"
)

// Searcher - часть индекса, нужная для поиска
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]domain.Match, error)
}

// Retriever находит top-K чанков для вопроса. Индекс не меняет.
type Retriever struct {
	embedder embedding.Embedder
	index    Searcher
	topK     int
	log      *zap.Logger
}

func NewRetriever(embedder embedding.Embedder, index Searcher, topK int, log *zap.Logger) *Retriever {
	return &Retriever{embedder: embedder, index: index, topK: topK, log: log}
}

// Fetch возвращает до topK чанков, самые похожие первыми
func (r *Retriever) Fetch(ctx context.Context, question string) ([]domain.Match, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	vec, err := embedding.EmbedOne(ctx, r.embedder, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := r.index.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	r.log.Debug("context retrieved", zap.Int("k", r.topK), zap.Int("matches", len(matches)))
	return matches, nil
}

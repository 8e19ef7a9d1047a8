package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type batched struct {
	next Embedder
	size int
	log  *zap.Logger
}

// Batched режет вход на пачки не больше size текстов
func Batched(next Embedder, size int, log *zap.Logger) Embedder {
	if size <= 0 {
		return next
	}
	return &batched{next: next, size: size, log: log}
}

func (b *batched) Model() string { return b.next.Model() }

func (b *batched) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		end := min(start+b.size, len(texts))
		vecs, err := b.next.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("batch %d-%d: got %d vectors", start, end, len(vecs))
		}
		out = append(out, vecs...)
		if len(texts) > b.size {
			b.log.Debug("embedding batch done", zap.Int("done", end), zap.Int("total", len(texts)))
		}
	}
	return out, nil
}

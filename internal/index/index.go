// Package index хранит чанки с эмбеддингами и ищет ближайшие к запросу.
// Каждая индексация полностью пересобирает индекс.
package index

import (
	"context"
	"fmt"

	"kb_rag/internal/domain"
)

// Index - векторное хранилище чанков
type Index interface {
	// Rebuild удаляет существующий индекс и записывает chunks.
	// Ошибки удаления и записи - domain.ErrStorageUnavailable.
	Rebuild(ctx context.Context, chunks []domain.Chunk) error

	// Search возвращает до k ближайших чанков, самые похожие первыми.
	// Пустой или отсутствующий индекс - пустой результат без ошибки.
	Search(ctx context.Context, query []float32, k int) ([]domain.Match, error)

	// Count - число чанков в индексе
	Count(ctx context.Context) (int, error)

	Close() error
}

// validate проверяет чанки до того, как старый индекс будет удалён
func validate(chunks []domain.Chunk) error {
	seen := make(map[string]struct{}, len(chunks))
	dim := 0
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk %d has no id", domain.ErrInvalidInput, i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate chunk id %s", domain.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}

		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID)
		}
		if dim == 0 {
			dim = len(c.Embedding)
		} else if len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), dim)
		}
	}
	return nil
}

// chunkFromMetadata восстанавливает поля чанка из сохранённых метаданных
func chunkFromMetadata(id, content string, meta domain.Metadata) domain.Chunk {
	return domain.Chunk{
		ID:           id,
		EntityID:     meta.Get(domain.MetaEntityID, domain.UnknownEntity),
		SectionTitle: meta.Get(domain.MetaSectionTitle, domain.DefaultSection),
		Content:      content,
		Metadata:     meta,
	}
}

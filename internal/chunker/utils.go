package chunker

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"kb_rag/internal/domain"
)

// newChunk собирает чанк секции с детерминированным ID.
// Позиция входит в хэш, чтобы одинаковые секции одного файла не совпадали.
func newChunk(doc domain.Document, entity string, position int, seg segment) domain.Chunk {
	content := fmt.Sprintf("%s's %s:\n%s", entity, seg.title, seg.body)
	hash := sha256.Sum256([]byte(doc.Path + "\x00" + strconv.Itoa(position) + "\x00" + content))

	return domain.Chunk{
		ID:           fmt.Sprintf("%x", hash[:8]),
		EntityID:     entity,
		SectionTitle: seg.title,
		Content:      content,
		Metadata: domain.Merge(doc.Metadata(), domain.Metadata{
			domain.MetaEntityID:     entity,
			domain.MetaSectionTitle: seg.title,
		}),
	}
}

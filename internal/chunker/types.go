// Package chunker режет markdown-документы на смысловые секции.
package chunker

import "kb_rag/internal/domain"

// Chunker - интерфейс для всех типов chunker'ов
type Chunker interface {
	// Chunk разбивает документ на чанки
	Chunk(doc domain.Document) ([]domain.Chunk, error)

	// Name возвращает название chunker'а для логирования
	Name() string
}

// segment - секция документа до сборки чанка
type segment struct {
	title string
	body  string
}

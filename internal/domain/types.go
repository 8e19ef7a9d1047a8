package domain

const (
	// UnknownEntity подставляется, если из пути не удалось извлечь имя сущности
	UnknownEntity = "Unknown Entity"

	// DefaultSection - заголовок для текста до первой секции
	DefaultSection = "Summary"
)

// Ключи метаданных чанка
const (
	MetaSource       = "source"
	MetaCategory     = "category"
	MetaEntityID     = "entity_id"
	MetaSectionTitle = "section_title"
)

// Document - исходный файл базы знаний. После загрузки не меняется.
type Document struct {
	Path     string // Путь к файлу
	Category string // Имя папки верхнего уровня
	Content  string // Текст документа
}

// Metadata возвращает метаданные уровня документа
func (d Document) Metadata() Metadata {
	return Metadata{
		MetaSource:   d.Path,
		MetaCategory: d.Category,
	}
}

// Chunk - единица хранения и поиска в индексе
type Chunk struct {
	ID           string    // Уникальный идентификатор (hash)
	EntityID     string    // Имя сущности из имени файла
	SectionTitle string    // Заголовок секции
	Content      string    // "{EntityID}'s {SectionTitle}:\n{body}"
	Metadata     Metadata  // category, source, entity_id, section_title
	Embedding    []float32 // Вектор, назначается один раз при индексации
}

// WithEmbedding возвращает копию чанка с вектором
func (c Chunk) WithEmbedding(vec []float32) Chunk {
	out := c
	out.Metadata = Merge(c.Metadata, nil)
	out.Embedding = make([]float32, len(vec))
	copy(out.Embedding, vec)
	return out
}

// Match - результат векторного поиска
type Match struct {
	Chunk
	Similarity float32
}

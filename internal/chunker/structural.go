package chunker

import (
	"strings"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

// StructuralChunker режет документ по заголовкам второго уровня ("## ").
// Одна секция - один чанк, без ограничения по размеру.
type StructuralChunker struct {
	log *zap.Logger
}

// NewStructuralChunker создаёт chunker
func NewStructuralChunker(log *zap.Logger) *StructuralChunker {
	return &StructuralChunker{log: log}
}

func (s *StructuralChunker) Name() string {
	return "structural"
}

// Chunk возвращает чанки в порядке секций документа.
// Текст до первого заголовка получает заголовок domain.DefaultSection.
// Секции с пустым телом отбрасываются.
func (s *StructuralChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	entity := EntityID(doc.Path)
	segments := splitSections(doc.Content)

	chunks := make([]domain.Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, newChunk(doc, entity, i, seg))
	}

	s.log.Debug("document chunked",
		zap.String("chunker", s.Name()),
		zap.String("source", doc.Path),
		zap.String("entity", entity),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// splitSections - построчный автомат: строка-заголовок закрывает текущую
// секцию и открывает новую, остальные строки копятся в теле.
func splitSections(content string) []segment {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	code := codeLines([]byte(content))

	var (
		out   []segment
		title = domain.DefaultSection
		body  []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			out = append(out, segment{title: title, body: text})
		}
		body = body[:0]
	}

	for i, line := range strings.Split(content, "\n") {
		if _, inCode := code[i]; !inCode {
			if t, ok := sectionHeading(line); ok {
				flush()
				title = t
				continue
			}
			if isDocumentHeading(line) {
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	return out
}

// sectionHeading распознаёт "## Title". "###" и глубже остаются телом секции.
func sectionHeading(line string) (string, bool) {
	if len(line) < 3 || !strings.HasPrefix(line, "##") || (line[2] != ' ' && line[2] != '\t') {
		return "", false
	}
	title := strings.TrimSpace(line[2:])
	if title == "" {
		title = domain.DefaultSection
	}
	return title, true
}

// isDocumentHeading - заголовок первого уровня ("# Name"). Он описывает файл
// целиком и в тело секции не попадает.
func isDocumentHeading(line string) bool {
	return len(line) >= 2 && line[0] == '#' && (line[1] == ' ' || line[1] == '\t')
}

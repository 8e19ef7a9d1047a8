package chunker

import (
	"regexp"
	"strings"

	"kb_rag/internal/domain"
)

var entityPattern = regexp.MustCompile(`(?:^|/)([^/]+)\.(?i:md|markdown)$`)

// EntityID извлекает имя сущности из пути: "employees/Jane-Doe.md" -> "Jane Doe".
// Разделители Windows приводятся к '/'. Без совпадения - domain.UnknownEntity.
func EntityID(path string) string {
	m := entityPattern.FindStringSubmatch(strings.ReplaceAll(path, `\`, "/"))
	if m == nil {
		return domain.UnknownEntity
	}
	name := strings.TrimSpace(strings.ReplaceAll(m[1], "-", " "))
	if name == "" {
		return domain.UnknownEntity
	}
	return name
}

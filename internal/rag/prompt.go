package rag

import (
	"fmt"
	"os"
	"strings"

	"kb_rag/internal/domain"
)

// ContextSlot - место в шаблоне, куда подставляются найденные чанки
const ContextSlot = "{context}"

// DefaultSystemTemplate - системная инструкция по умолчанию
const DefaultSystemTemplate = `You are a knowledgeable, friendly assistant representing the company Insurellm.
You are chatting with a user about Insurellm.
Answer the question using only the context below.
If the context does not contain the information, say explicitly that you don't know. Never speculate or make up facts.
Make sure you reason through each step.

Context:
{context}
`

// LoadTemplate читает шаблон из файла. Пустой путь - шаблон по умолчанию.
// Шаблон должен содержать ровно одно место {context}.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return DefaultSystemTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt %s: %w", path, err)
	}
	tmpl := string(data)
	if err := ValidateTemplate(tmpl); err != nil {
		return "", fmt.Errorf("system prompt %s: %w", path, err)
	}
	return tmpl, nil
}

func ValidateTemplate(tmpl string) error {
	if n := strings.Count(tmpl, ContextSlot); n != 1 {
		return fmt.Errorf("%w: template must contain exactly one %s slot, found %d",
			domain.ErrInvalidInput, ContextSlot, n)
	}
	return nil
}

// BuildSystemPrompt подставляет содержимое чанков в шаблон
func BuildSystemPrompt(tmpl string, matches []domain.Match) string {
	var buf strings.Builder
	for i, m := range matches {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(m.Chunk.Content)
	}
	return strings.Replace(tmpl, ContextSlot, buf.String(), 1)
}

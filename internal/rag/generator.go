package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
	"kb_rag/internal/llm"
	"kb_rag/internal/retry"
)

// Fetcher - источник контекста для ответа
type Fetcher interface {
	Fetch(ctx context.Context, question string) ([]domain.Match, error)
}

// Answer - ответ модели и чанки, на которых он основан
type Answer struct {
	Text    string
	Sources []domain.Match
}

// Generator отвечает на вопрос по найденному контексту.
// Вызов модели обёрнут в политику повторов.
type Generator struct {
	fetcher  Fetcher
	model    llm.ChatModel
	policy   *retry.Policy
	template string
	log      *zap.Logger
}

func NewGenerator(fetcher Fetcher, model llm.ChatModel, policy *retry.Policy, template string, log *zap.Logger) (*Generator, error) {
	if err := ValidateTemplate(template); err != nil {
		return nil, err
	}
	return &Generator{
		fetcher:  fetcher,
		model:    model,
		policy:   policy,
		template: template,
		log:      log,
	}, nil
}

// Answer ищет контекст, собирает системный промпт и спрашивает модель
func (g *Generator) Answer(ctx context.Context, question string) (Answer, error) {
	matches, err := g.fetcher.Fetch(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	system := BuildSystemPrompt(g.template, matches)

	var text string
	err = g.policy.Do(ctx, func(ctx context.Context) error {
		out, err := g.model.Complete(ctx, system, strings.TrimSpace(question))
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer with %s: %w", g.model.Name(), err)
	}

	g.log.Info("answer generated",
		zap.String("model", g.model.Name()),
		zap.Int("sources", len(matches)),
		zap.Int("answer_len", len(text)))
	return Answer{Text: text, Sources: matches}, nil
}

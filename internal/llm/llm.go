// Package llm - клиенты языковых моделей для генерации ответа.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kb_rag/internal/config"
	"kb_rag/internal/domain"
)

// ChatModel выполняет один запрос к модели: системная инструкция + вопрос.
// Временные сбои провайдера возвращаются как *domain.ProviderError с Transient.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// New создаёт клиента модели по конфигу
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (ChatModel, error) {
	lc := cfg.LLM

	var model ChatModel
	switch lc.Provider {
	case config.ProviderOpenAI:
		model = NewOpenAI(lc.BaseURL, cfg.OpenAIKey, lc.Model, lc.Temperature, lc.Timeout)
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg.GeminiKey, lc.Model, lc.Temperature)
		if err != nil {
			return nil, err
		}
		model = g
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidInput, lc.Provider)
	}

	log.Info("chat model ready", zap.String("model", model.Name()), zap.String("base_url", lc.BaseURL))
	return model, nil
}

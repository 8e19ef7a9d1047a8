// Package gemini - общий клиент Gemini API для эмбеддингов и чата.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/genai"

	"kb_rag/internal/domain"
)

const Provider = "gemini"

// NewClient создаёт клиента Gemini API. Пустой ключ - ошибка конфигурации.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", domain.ErrInvalidInput)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// Classify переводит ошибку genai в domain.ProviderError.
// Отмена контекста возвращается как есть.
func Classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &domain.ProviderError{Provider: Provider, Err: err}

	var apiErr genai.APIError
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.Code
		pe.Transient = domain.TransientStatus(apiErr.Code)
	case errors.As(err, &netErr):
		pe.Transient = true
	}
	return pe
}

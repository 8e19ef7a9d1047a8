package llm

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"kb_rag/internal/domain"
	"kb_rag/internal/gemini"
)

// Gemini - чат-модель Gemini API
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, apiKey, model string, temperature float32) (*Gemini, error) {
	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model, temperature: temperature}, nil
}

func (g *Gemini) Name() string { return gemini.Provider + "/" + g.model }

func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       &temperature,
		},
	)
	if err != nil {
		return "", gemini.Classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &domain.ProviderError{Provider: gemini.Provider, Err: errors.New("empty response")}
	}
	return text, nil
}

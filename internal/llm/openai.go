package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kb_rag/internal/config"
	"kb_rag/internal/domain"
)

// OpenAI - клиент OpenAI-совместимого /chat/completions (OpenAI, Ollama /v1, vLLM)
type OpenAI struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float32
	client      *http.Client
}

func NewOpenAI(baseURL, apiKey, model string, temperature float32, timeout time.Duration) *OpenAI {
	return &OpenAI{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

func (o *OpenAI) Name() string { return config.ProviderOpenAI + "/" + o.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete отправляет system + user сообщения и возвращает текст первого варианта
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	jsonData, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &domain.ProviderError{Provider: config.ProviderOpenAI, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &domain.ProviderError{
			Provider:   config.ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Transient:  domain.TransientStatus(resp.StatusCode),
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", &domain.ProviderError{Provider: config.ProviderOpenAI, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(response.Choices) == 0 {
		return "", &domain.ProviderError{Provider: config.ProviderOpenAI, Err: errors.New("no choices in response")}
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

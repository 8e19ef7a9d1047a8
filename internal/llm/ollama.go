package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type ollamaTags struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// EnsureOllamaModels проверяет, что Ollama доступен, и скачивает недостающие модели
func EnsureOllamaModels(ctx context.Context, client *http.Client, baseURL string, log *zap.Logger, models ...string) error {
	baseURL = strings.TrimRight(baseURL, "/")

	available, err := listOllamaModels(ctx, client, baseURL)
	if err != nil {
		return fmt.Errorf("ollama is not running or not reachable at %s: %w", baseURL, err)
	}

	for _, model := range models {
		if model == "" {
			continue
		}
		if hasModel(available, model) {
			log.Info("model is available", zap.String("model", model))
			continue
		}

		log.Info("model not found, pulling", zap.String("model", model))
		if err := pullOllamaModel(ctx, client, baseURL, model); err != nil {
			return fmt.Errorf("failed to pull model %s: %w", model, err)
		}
		log.Info("model pulled successfully", zap.String("model", model))
	}
	return nil
}

func listOllamaModels(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name, m.Model)
	}
	return names, nil
}

// hasModel: "nomic-embed-text" совпадает с "nomic-embed-text:latest"
func hasModel(available []string, model string) bool {
	for _, name := range available {
		if name == model || name == model+":latest" {
			return true
		}
	}
	return false
}

func pullOllamaModel(ctx context.Context, client *http.Client, baseURL, model string) error {
	b, err := json.Marshal(ollamaPullRequest{Name: model, Stream: false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/pull", bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

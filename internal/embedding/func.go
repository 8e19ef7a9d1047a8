package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"

	"github.com/philippgille/chromem-go"

	"kb_rag/internal/domain"
)

// chromem-go сообщает об ответе не-200 как "...embedding API: 429 Too Many Requests"
var statusPattern = regexp.MustCompile(`embedding API: (\d{3})\b`)

// FuncEmbedder - провайдер на основе chromem.EmbeddingFunc (один запрос на текст)
type FuncEmbedder struct {
	provider string
	model    string
	fn       chromem.EmbeddingFunc
}

// NewFunc оборачивает функцию эмбеддинга chromem-go
func NewFunc(provider, model string, fn chromem.EmbeddingFunc) *FuncEmbedder {
	return &FuncEmbedder{provider: provider, model: model, fn: fn}
}

func (f *FuncEmbedder) Model() string { return f.provider + "/" + f.model }

func (f *FuncEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := f.fn(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, classify(f.provider, err))
		}
		out = append(out, vec)
	}
	return out, nil
}

// classify переводит ошибку HTTP-клиента в domain.ProviderError.
// 429/5xx и сетевые сбои считаются временными.
func classify(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	pe := &domain.ProviderError{Provider: provider, Err: err}
	var netErr net.Error
	if errors.As(err, &netErr) {
		pe.Transient = true
		return pe
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		pe.StatusCode, _ = strconv.Atoi(m[1])
		pe.Transient = domain.TransientStatus(pe.StatusCode)
	}
	return pe
}

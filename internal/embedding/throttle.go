package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

type throttled struct {
	next    Embedder
	limiter *rate.Limiter
}

// Throttled ограничивает поток текстов к провайдеру: rps текстов в секунду
// с запасом burst. rps <= 0 отключает ограничение.
func Throttled(next Embedder, rps float64, burst int) Embedder {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *throttled) Model() string { return t.next.Model() }

func (t *throttled) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for range texts {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.next.Embed(ctx, texts)
}

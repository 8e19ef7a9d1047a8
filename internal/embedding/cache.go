package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

type cached struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
	log   *zap.Logger
}

// Cached хранит векторы в LRU с TTL. Ключ - модель и хэш текста.
// size <= 0 или ttl <= 0 отключают кэш.
func Cached(next Embedder, size int, ttl time.Duration, log *zap.Logger) Embedder {
	if size <= 0 || ttl <= 0 {
		return next
	}
	return &cached{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
		log:   log,
	}
}

func (c *cached) Model() string { return c.next.Model() }

func (c *cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		keys[i] = c.key(text)
		if vec, ok := c.cache.Get(keys[i]); ok {
			out[i] = cloneVector(vec)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		vecs, err := c.next.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("embedder %s returned %d vectors for %d texts", c.Model(), len(vecs), len(missTexts))
		}
		for j, i := range missIdx {
			c.cache.Add(keys[i], cloneVector(vecs[j]))
			out[i] = vecs[j]
		}
	}

	c.log.Debug("embedding cache",
		zap.Int("hits", len(texts)-len(missTexts)),
		zap.Int("misses", len(missTexts)))
	return out, nil
}

func (c *cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.next.Model() + ":" + hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Package retry - ограниченные повторы с экспоненциальной задержкой
// для вызовов языковой модели.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

// Policy описывает бюджет повторов.
// Задержка перед n-м повтором: MinDelay * 2^(n-1), но не больше MaxDelay.
type Policy struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// New создаёт политику. maxAttempts считает и первую попытку.
func New(minDelay, maxDelay time.Duration, maxAttempts int, log *zap.Logger) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Policy{
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		MaxAttempts: maxAttempts,
		log:         log,
		sleep:       sleepContext,
	}
}

// Delay возвращает паузу перед повтором номер n (n >= 1)
func (p *Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.MinDelay
	for i := 1; i < n; i++ {
		if d >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do вызывает fn, пока она возвращает временную ошибку и бюджет не исчерпан.
// Постоянные ошибки возвращаются сразу, без повторов.
// Исчерпание бюджета и отмена контекста дают domain.ErrGenerationUnavailable
// с последней причиной внутри.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return unavailable(err, lastErr)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return unavailable(ctxErr, lastErr)
			}
			return err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Delay(attempt)
		p.log.Warn("transient provider error, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := p.sleep(ctx, delay); err != nil {
			return unavailable(err, lastErr)
		}
	}

	return fmt.Errorf("%w: %d attempts exhausted: %w", domain.ErrGenerationUnavailable, p.MaxAttempts, lastErr)
}

func unavailable(ctxErr, lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, ctxErr)
	}
	return fmt.Errorf("%w: %w: last error: %w", domain.ErrGenerationUnavailable, ctxErr, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

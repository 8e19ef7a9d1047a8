package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

func transient(msg string) error {
	return &domain.ProviderError{Provider: "test", StatusCode: 429, Transient: true, Err: errors.New(msg)}
}

func recordingPolicy(attempts int) (*Policy, *[]time.Duration) {
	p := New(10*time.Second, 240*time.Second, attempts, zap.NewNop())
	var waits []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return p, &waits
}

func TestDelay(t *testing.T) {
	p := New(10*time.Second, 240*time.Second, 10, zap.NewNop())

	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 20*time.Second, p.Delay(2))
	assert.Equal(t, 40*time.Second, p.Delay(3))
	assert.Equal(t, 160*time.Second, p.Delay(5))
	assert.Equal(t, 240*time.Second, p.Delay(6))
	assert.Equal(t, 240*time.Second, p.Delay(60))
}

func TestDo_TransientThenSuccess(t *testing.T) {
	p, waits := recordingPolicy(10)

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls <= 3 {
			return transient("rate limited")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second}, *waits)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	p, waits := recordingPolicy(10)
	bad := &domain.ProviderError{Provider: "test", StatusCode: 401, Err: errors.New("bad key")}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return bad
	})

	assert.Same(t, bad, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestDo_Exhausted(t *testing.T) {
	p, waits := recordingPolicy(3)
	last := transient("overloaded")

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return last
	})

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.ErrorIs(t, err, domain.ErrTransientProvider)
	assert.Equal(t, 3, calls)
	assert.Len(t, *waits, 2)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	p := New(time.Hour, time.Hour, 5, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	start := time.Now()
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return transient("busy")
	})

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrTransientProvider)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestDo_AlreadyCancelled(t *testing.T) {
	p, _ := recordingPolicy(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

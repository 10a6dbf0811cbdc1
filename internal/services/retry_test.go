package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apledger/internal/core"
)

func TestRetryPolicyDo(t *testing.T) {
	ctx := context.Background()
	p := RetryPolicy{Attempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := p.Do(ctx, "op", func(context.Context) error {
			calls++
			if calls < 3 {
				return core.ErrStorageUnavailable
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := p.Do(ctx, "op", func(context.Context) error {
			calls++
			return core.ErrNotFound
		})
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := p.Do(ctx, "save ledger", func(context.Context) error {
			calls++
			return core.ErrStorageUnavailable
		})
		assert.ErrorIs(t, err, core.ErrStorageUnavailable)
		assert.Contains(t, err.Error(), "save ledger: giving up after 4 attempts")
		assert.Equal(t, 4, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryPolicy{Attempts: 5, BaseDelay: time.Hour}
		calls := 0
		err := slow.Do(ctx, "op", func(context.Context) error {
			calls++
			cancel()
			return core.ErrStorageUnavailable
		})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{}.Do(ctx, "op", func(context.Context) error {
			calls++
			return core.ErrStorageUnavailable
		})
		assert.ErrorIs(t, err, core.ErrStorageUnavailable)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, 100*time.Millisecond, p.backoff(0))
	assert.Equal(t, 400*time.Millisecond, p.backoff(2))
	assert.Equal(t, time.Second, p.backoff(10))
	assert.Equal(t, time.Duration(0), RetryPolicy{}.backoff(3))
}

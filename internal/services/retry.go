package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"apledger/internal/core"
	applog "apledger/internal/log"
)

// RetryPolicy retries gateway calls that failed with
// core.ErrStorageUnavailable. Every other error is returned at once.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// MaxDelay caps the backoff; zero means uncapped.
	MaxDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  5 * time.Second,
	}
}

// NoRetry runs each call exactly once.
var NoRetry = RetryPolicy{Attempts: 1}

// Do runs fn until it succeeds, fails with a non-retryable error, the
// attempts run out or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrStorageUnavailable) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.backoff(attempt)
		slog.WarnContext(ctx, "Storage unavailable, retrying",
			applog.FieldOperation, op,
			applog.FieldAttempt, attempt+1,
			"wait", wait,
			applog.FieldError, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		case <-time.After(wait):
		}
	}
	if attempts == 1 {
		return err
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, err)
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt > 20 {
		attempt = 20
	}
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Package utils provides small shared helpers.
package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// FetchConfig bounds an external data fetch.
type FetchConfig struct {
	InitialDelay time.Duration
	MaxTries     uint
	MaxElapsed   time.Duration
}

// DefaultFetchConfig returns the default fetch bounds. External calls are
// bounded and fail rather than retrying in a tight loop.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		InitialDelay: 200 * time.Millisecond,
		MaxTries:     3,
		MaxElapsed:   10 * time.Second,
	}
}

// FetchWithRetry runs fn under exponential backoff within the configured bounds.
func FetchWithRetry[T any](ctx context.Context, cfg FetchConfig, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialDelay

	return backoff.Retry(ctx, fn,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(cfg.MaxTries),
		backoff.WithMaxElapsedTime(cfg.MaxElapsed),
	)
}

// Permanent marks an error as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

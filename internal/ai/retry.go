package ai

import (
	"context"
	"time"
)

// RetryConfig bounds retries of a provider call. Defaults match the
// escalation fallback contract: 3 attempts, backoff doubling from 2s,
// capped at 10s.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// Retry runs op up to cfg.MaxAttempts times with exponential backoff.
// It returns the last error once attempts are exhausted; ctx cancellation
// aborts both waiting and further attempts.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

// GenerateWithRetry wraps a provider call in the standard retry policy.
func GenerateWithRetry(ctx context.Context, p Provider, cfg RetryConfig, req GenerateRequest) (string, error) {
	var out string
	err := Retry(ctx, cfg, func(ctx context.Context) error {
		var err error
		out, err = p.Generate(ctx, req)
		return err
	})
	return out, err
}

package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tunogya/subpattern/pkg/model"
)

// RetryConfig holds configuration for calls to external collaborators
type RetryConfig struct {
	Attempts  int           // Total attempts per call
	Delay     time.Duration // Delay before the first retry, doubled each time
	MaxDelay  time.Duration // Upper bound on a single delay
	PerMinute int           // Rate limit across all calls, 0 disables
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		Delay:     time.Second * 2,
		MaxDelay:  time.Second * 30,
		PerMinute: 0,
	}
}

// RetryingProvider decorates a HistoryProvider with rate limiting and bounded
// exponential backoff. Exhausted calls wrap model.ErrExternalProvider.
type RetryingProvider struct {
	inner   HistoryProvider
	config  RetryConfig
	limiter *Limiter
}

// NewRetryingProvider wraps inner with retry and rate limiting
func NewRetryingProvider(inner HistoryProvider, config RetryConfig) *RetryingProvider {
	if config.Attempts <= 0 {
		config.Attempts = 1
	}
	return &RetryingProvider{
		inner:   inner,
		config:  config,
		limiter: NewLimiter("history", config.PerMinute),
	}
}

func (p *RetryingProvider) FetchPrices(ctx context.Context, stockID string) ([]model.PriceBar, error) {
	return withRetry(ctx, p, "fetch prices "+stockID, func(ctx context.Context) ([]model.PriceBar, error) {
		return p.inner.FetchPrices(ctx, stockID)
	})
}

func (p *RetryingProvider) FetchBPoints(ctx context.Context, stockID string) ([]model.BPoint, error) {
	return withRetry(ctx, p, "fetch b-points "+stockID, func(ctx context.Context) ([]model.BPoint, error) {
		return p.inner.FetchBPoints(ctx, stockID)
	})
}

func (p *RetryingProvider) FetchPatternLabels(ctx context.Context, stockID string) ([]model.PatternLabel, error) {
	return withRetry(ctx, p, "fetch pattern labels "+stockID, func(ctx context.Context) ([]model.PatternLabel, error) {
		return p.inner.FetchPatternLabels(ctx, stockID)
	})
}

func withRetry[T any](ctx context.Context, p *RetryingProvider, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := p.config.Delay

	for attempt := 0; attempt < p.config.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if p.config.MaxDelay > 0 && delay > p.config.MaxDelay {
				delay = p.config.MaxDelay
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err

		var pe *ProviderError
		if errors.As(err, &pe) && !pe.Retryable {
			break
		}
	}

	return zero, fmt.Errorf("%w: failed to %s: %w", model.ErrExternalProvider, op, lastErr)
}

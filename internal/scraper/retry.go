package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-data-explorer/internal/metrics"
)

// RetryingFetcher wraps a single-attempt Fetcher with a bounded retry loop.
type RetryingFetcher struct {
	next    Fetcher
	policy  RetryPolicy
	limiter Limiter
	pause   func(ctx context.Context, delay time.Duration) error
	logger  *zap.Logger
}

// NewRetryingFetcher builds a RetryingFetcher. limiter may be nil.
func NewRetryingFetcher(next Fetcher, policy RetryPolicy, limiter Limiter, logger *zap.Logger) *RetryingFetcher {
	if policy == nil {
		policy = NewFixedRetryPolicy(DefaultRetryDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingFetcher{
		next:    next,
		policy:  policy,
		limiter: limiter,
		pause:   sleepContext,
		logger:  logger,
	}
}

// Fetch attempts request.URL up to request.MaxRetries+1 times. Only transient
// failures are retried; the last classified error is returned once the
// attempts are exhausted.
func (f *RetryingFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	maxAttempts := max(request.MaxRetries, 0) + 1
	var last FetchAttempt
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, request.URL); err != nil {
				return FetchResponse{}, fmt.Errorf("wait for upstream slot: %w", err)
			}
		}
		resp, err := f.next.Fetch(ctx, request)
		if err == nil {
			resp.Attempts = attempt
			metrics.ObserveFetch(request.URL, "success")
			return resp, nil
		}

		fe := asFetchError(request.URL, err)
		fe.Attempts = attempt
		last = FetchAttempt{Attempt: attempt, Err: fe}
		if ctx.Err() != nil || !f.policy.ShouldRetry(fe, attempt, maxAttempts) {
			break
		}

		last.Delay = f.policy.Backoff(attempt)
		f.logger.Warn("retrying upstream fetch",
			zap.String("url", request.URL),
			zap.Int("attempt", attempt),
			zap.Int("attempts_left", maxAttempts-attempt),
			zap.String("kind", string(fe.Kind)),
			zap.Duration("delay", last.Delay),
		)
		metrics.ObserveFetchRetry(request.URL, string(fe.Kind))
		if err := f.pause(ctx, last.Delay); err != nil {
			break
		}
	}

	var fe *FetchError
	if errors.As(last.Err, &fe) {
		metrics.ObserveFetch(request.URL, string(fe.Kind))
	}
	return FetchResponse{}, last.Err
}

func asFetchError(rawURL string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return ClassifyError(rawURL, 0, err)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

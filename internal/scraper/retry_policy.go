package scraper

import (
	"context"
	"errors"
	"time"
)

// DefaultRetryDelay is the fixed pause between fetch attempts.
const DefaultRetryDelay = time.Second

// RetryPolicy decides whether and when a failed fetch is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt, maxAttempts int) bool
	Backoff(attempt int) time.Duration
}

// FixedRetryPolicy retries transient failures after a constant delay.
type FixedRetryPolicy struct {
	delay time.Duration
}

// NewFixedRetryPolicy builds a policy that waits delay between attempts.
// A negative delay is treated as zero.
func NewFixedRetryPolicy(delay time.Duration) *FixedRetryPolicy {
	if delay < 0 {
		delay = 0
	}
	return &FixedRetryPolicy{delay: delay}
}

// ShouldRetry decides whether the error is retryable.
func (p *FixedRetryPolicy) ShouldRetry(err error, attempt, maxAttempts int) bool {
	if err == nil || attempt >= maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Transient()
}

// Backoff returns the wait duration before the next attempt.
func (p *FixedRetryPolicy) Backoff(int) time.Duration {
	return p.delay
}

package executor

import (
	"errors"
	"time"

	"github.com/t77yq/scrape-scheduler/internal/scraper"
)

// BackoffStrategy defines the interface for retry backoff strategies
type BackoffStrategy interface {
	// NextRetry calculates the delay before the given attempt
	NextRetry(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff retry strategy
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NextRetry calculates the next retry delay using exponential backoff
func (s *ExponentialBackoff) NextRetry(attempt int) time.Duration {
	delay := float64(s.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= s.Multiplier
	}

	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// RetryPolicy decides whether and when a failed fetch attempt runs
// again. Retry behavior is data, not control flow: the policy is
// threaded through the executor.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, including the
	// first one.
	MaxAttempts int
	Backoff     BackoffStrategy
}

// DefaultRetryPolicy mirrors the stock configuration: three attempts,
// one minute base delay doubling per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: &ExponentialBackoff{
			InitialDelay: time.Minute,
			MaxDelay:     30 * time.Minute,
			Multiplier:   2,
		},
	}
}

// Retryable classifies an error. Transport, parse and render failures
// are retryable; an unsupported strategy or an unavailable browser
// (already degraded once) is terminal.
func (p RetryPolicy) Retryable(err error) bool {
	var fetchErr *scraper.FetchError
	return errors.As(err, &fetchErr)
}

// Delay returns the backoff before the next attempt, given how many
// attempts have already completed.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	return p.Backoff.NextRetry(attempts)
}

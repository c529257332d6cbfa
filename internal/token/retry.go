package token

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy is an explicit, iterative retry policy for the provider
// token fetch: a capped number of retries with an exponentially doubling
// base delay, each attempt raced against a fixed timeout.
type RetryPolicy struct {
	// MaxRetries is how many times a failed fetch is retried. The total
	// attempt count is MaxRetries + 1.
	MaxRetries int

	// BaseDelay is the delay before the first retry; it doubles on each
	// subsequent attempt.
	BaseDelay time.Duration

	// AttemptTimeout bounds each individual attempt. An attempt that
	// exceeds it is treated as a transient failure; its result, if it ever
	// arrives, is abandoned rather than cancelled, since the underlying
	// operation offers no cancellation primitive.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the observed production settings: three
// retries, a two second base delay, thirty seconds per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		BaseDelay:      2 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// fetchResult carries an attempt's outcome across the timeout race.
type fetchResult struct {
	value string
	err   error
}

// Do runs fn under the policy. It is independent of what fn actually does,
// so the retry/backoff/timeout behavior is unit-testable on its own.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.BaseDelay

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		value, err := p.attempt(ctx, fn)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrRetriesExhausted, ctx.Err())
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrRetriesExhausted, ctx.Err())
		}
		delay *= 2
	}

	return "", fmt.Errorf("%w: last error: %v", ErrRetriesExhausted, lastErr)
}

// attempt races one invocation of fn against the attempt timeout. The
// goroutine writes into a buffered channel so a late result is dropped on
// the floor instead of leaking the goroutine.
func (p RetryPolicy) attempt(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}

	results := make(chan fetchResult, 1)
	go func() {
		value, err := fn(ctx)
		results <- fetchResult{value: value, err: err}
	}()

	timer := time.NewTimer(p.AttemptTimeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.value, res.err
	case <-timer.C:
		return "", fmt.Errorf("token fetch attempt timed out after %s", p.AttemptTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package loader

import (
	"context"
	"time"
)

// RetryPolicy is a value describing how retrieval calls are retried: at
// most MaxCalls attempts spread over Window, stopping early when the
// Retryable predicate rejects an error. A nil predicate retries every
// error.
type RetryPolicy struct {
	MaxCalls  int
	Window    time.Duration
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the standard budget of 4 calls per 30
// second window with the given transience predicate.
func DefaultRetryPolicy(retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxCalls:  4,
		Window:    30 * time.Second,
		Retryable: retryable,
	}
}

// Run invokes do until it succeeds, the call budget is exhausted, the
// error is not retryable, or the context is done. The last error is
// returned.
func (policy RetryPolicy) Run(ctx context.Context, do func(ctx context.Context) error) error {
	maxCalls := policy.MaxCalls
	if maxCalls < 1 {
		maxCalls = 1
	}
	delay := time.Duration(0)
	if maxCalls > 1 {
		delay = policy.Window / time.Duration(maxCalls)
	}

	var err error
	for attempt := 0; attempt < maxCalls; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Error.Wrap(ctx.Err())
			case <-time.After(delay):
			}
		}
		if err = do(ctx); err == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}
	}
	return err
}

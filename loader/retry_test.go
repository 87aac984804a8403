// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package loader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"econuy.io/econuy/loader"
)

func TestRetryPolicyRetriesUntilSuccess(t *testing.T) {
	policy := loader.RetryPolicy{MaxCalls: 4, Window: 40 * time.Millisecond}

	calls := 0
	err := policy.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return loader.Error.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryPolicyExhaustsBudget(t *testing.T) {
	policy := loader.RetryPolicy{MaxCalls: 4, Window: 40 * time.Millisecond}

	calls := 0
	err := policy.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return loader.Error.New("always down")
	})
	require.Error(t, err)
	require.Equal(t, 4, calls)
}

func TestRetryPolicyStopsOnPermanentError(t *testing.T) {
	policy := loader.RetryPolicy{
		MaxCalls:  4,
		Window:    40 * time.Millisecond,
		Retryable: func(err error) bool { return false },
	}

	calls := 0
	err := policy.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return loader.Error.New("bad request")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRetryPolicyHonorsContext(t *testing.T) {
	policy := loader.RetryPolicy{MaxCalls: 4, Window: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := policy.Run(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return loader.Error.New("down")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyZeroValueRunsOnce(t *testing.T) {
	calls := 0
	err := loader.RetryPolicy{}.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

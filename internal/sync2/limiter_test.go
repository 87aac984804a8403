// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package sync2_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"econuy.io/econuy/internal/sync2"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	const limit = 3
	ctx := context.Background()
	limiter := sync2.NewLimiter(limit)

	var current, peak int64
	for i := 0; i < 20; i++ {
		started := limiter.Go(ctx, func() {
			now := atomic.AddInt64(&current, 1)
			for {
				seen := atomic.LoadInt64(&peak)
				if now <= seen || atomic.CompareAndSwapInt64(&peak, seen, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&current, -1)
		})
		require.True(t, started)
	}
	limiter.Wait()

	require.LessOrEqual(t, peak, int64(limit))
	require.Greater(t, peak, int64(0))
}

func TestLimiterCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := sync2.NewLimiter(1)
	started := limiter.Go(ctx, func() {
		t.Error("should not have started")
	})
	require.False(t, started)
	limiter.Wait()
}

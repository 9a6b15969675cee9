package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitPacesSameHost(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: 50 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://shop.test/"))
	require.NoError(t, l.Wait(ctx, "https://shop.test/about"))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond,
		"second fetch to the same host must wait out the interval")
}

func TestWaitDoesNotCoupleHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: time.Hour})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.test/"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.test/"))
	require.Less(t, time.Since(start), time.Second,
		"a fresh host gets its first token immediately")
}

func TestWaitBurst(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: time.Hour, Burst: 3})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "https://shop.test/"))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestWaitCanceledContext(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: time.Hour})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "https://shop.test/"))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err := l.Wait(canceled, "https://shop.test/next")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit wait")
}

func TestWaitUnparseableURL(t *testing.T) {
	t.Parallel()

	l := New(Config{Interval: time.Millisecond})
	require.NoError(t, l.Wait(context.Background(), "::not a url::"))
}

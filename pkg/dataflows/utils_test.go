package dataflows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := WithRetry(context.Background(), DefaultRetryConfig(0), func(context.Context) error {
		calls++
		return boom
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, boom, err)
}

func TestWithRetryRecovers(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	calls := 0
	err := WithRetry(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentErrors(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	err := WithRetry(context.Background(), cfg, func(context.Context) error {
		calls++
		return fmt.Errorf("lookup: %w", ErrNotFound)
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, cfg, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BRK-B", NormalizeSymbol(" brk.b "))
	assert.Equal(t, "AAPL", NormalizeSymbol("aapl"))
	assert.Error(t, ValidateSymbol("  "))
	assert.Error(t, ValidateSymbol("ABCDEFGHIJKL"))
}

func TestPeriodStart(t *testing.T) {
	end := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	start, err := PeriodStart(end, "6mo")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)

	_, err = PeriodStart(end, "max")
	assert.Error(t, err)
}

func TestCacheManagerRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)
	require.NoError(t, cm.Set("src", "m", "AAPL", []string{"a", "b"}))

	var got []string
	assert.True(t, cm.Get("src", "m", "AAPL", &got))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.False(t, cm.Get("src", "m", "MSFT", &got))

	disabled := NewCacheManager(t.TempDir(), time.Hour, false)
	require.NoError(t, disabled.Set("src", "m", "AAPL", got))
	assert.False(t, disabled.Get("src", "m", "AAPL", &got))
}

func TestCacheManagerExpires(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Nanosecond, true)
	require.NoError(t, cm.Set("src", "m", 1, 42))
	time.Sleep(time.Millisecond)
	var v int
	assert.False(t, cm.Get("src", "m", 1, &v))
}

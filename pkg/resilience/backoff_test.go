package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayBackoff_Sequence(t *testing.T) {
	backoff := GatewayBackoff()
	backoff.Jitter = 0

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{6, 8 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestGatewayBackoff_JitterStaysInBand(t *testing.T) {
	backoff := GatewayBackoff()

	seen := make(map[time.Duration]struct{})
	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(1)
		assert.GreaterOrEqual(t, delay, 1800*time.Millisecond)
		assert.LessOrEqual(t, delay, 2200*time.Millisecond)
		seen[delay] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "jitter should spread retries")
}

func TestFixedBackoff_IgnoresAttempt(t *testing.T) {
	backoff := &FixedBackoff{Delay: 5 * time.Millisecond}
	for attempt := 0; attempt < 4; attempt++ {
		assert.Equal(t, 5*time.Millisecond, backoff.NextDelay(attempt))
	}
}

func TestWait(t *testing.T) {
	t.Run("returns after delay", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Wait(context.Background(), &FixedBackoff{Delay: 20 * time.Millisecond}, 0))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled context wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Wait(ctx, &FixedBackoff{Delay: time.Hour}, 0), context.Canceled)
	})

	t.Run("deadline during wait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, Wait(ctx, GatewayBackoff(), 0), context.DeadlineExceeded)
	})
}

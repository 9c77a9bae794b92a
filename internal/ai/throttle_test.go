package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCooldownThrottle_WaitsRemainingGap(t *testing.T) {
	now := time.Unix(1000, 0)
	var slept []time.Duration
	th := &cooldownThrottle{
		cooldown: 2 * time.Second,
		now:      func() time.Time { return now },
		sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			now = now.Add(d)
			return nil
		},
	}
	require.NoError(t, th.Wait(context.Background()))
	require.Empty(t, slept)

	now = now.Add(500 * time.Millisecond)
	require.NoError(t, th.Wait(context.Background()))
	require.Equal(t, []time.Duration{1500 * time.Millisecond}, slept)

	now = now.Add(3 * time.Second)
	require.NoError(t, th.Wait(context.Background()))
	require.Len(t, slept, 1)
}

func TestCooldownThrottle_Cancelled(t *testing.T) {
	th := NewCooldownThrottle(time.Hour)
	require.NoError(t, th.Wait(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, th.Wait(ctx), context.Canceled)
}

func TestThrottleConstructors(t *testing.T) {
	require.IsType(t, noopThrottle{}, NewCooldownThrottle(0))
	require.IsType(t, noopThrottle{}, NewRateThrottle(0, 1))
	th := NewRateThrottle(100, 0)
	require.NoError(t, th.Wait(context.Background()))
}

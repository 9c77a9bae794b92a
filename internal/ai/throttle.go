package ai

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is consulted before every generation call.
type Throttle interface {
	Wait(ctx context.Context) error
}

type noopThrottle struct{}

func NoopThrottle() Throttle {
	return noopThrottle{}
}

func (noopThrottle) Wait(context.Context) error {
	return nil
}

type cooldownThrottle struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewCooldownThrottle enforces a fixed gap between consecutive calls.
func NewCooldownThrottle(cooldown time.Duration) Throttle {
	if cooldown <= 0 {
		return NoopThrottle()
	}
	return &cooldownThrottle{
		cooldown: cooldown,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func (t *cooldownThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.last.IsZero() {
		if wait := t.cooldown - t.now().Sub(t.last); wait > 0 {
			if err := t.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	t.last = t.now()
	return nil
}

type rateThrottle struct {
	limiter *rate.Limiter
}

// NewRateThrottle is a token bucket allowing rps calls per second with the given burst.
func NewRateThrottle(rps float64, burst int) Throttle {
	if rps <= 0 {
		return NoopThrottle()
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateThrottle{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *rateThrottle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package translate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces requests. The delay applies after every window of a
// file; the limiter, when set, is shared by all files of a run.
type Throttle struct {
	delay   time.Duration
	limiter *rate.Limiter
}

// NewThrottle returns a throttle. A nil limiter disables rate limiting.
func NewThrottle(delay time.Duration, limiter *rate.Limiter) *Throttle {
	return &Throttle{delay: delay, limiter: limiter}
}

// NewLimiter returns a limiter allowing rpm requests per minute, or nil
// when rpm is not positive.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// Admit blocks until the shared limiter lets one request through.
func (t *Throttle) Admit(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

// Pause waits for the configured delay or until ctx is done.
func (t *Throttle) Pause(ctx context.Context) error {
	if t == nil || t.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

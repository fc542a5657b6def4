package campaign

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer owns every deliberate wait of a campaign. The limiter may be shared by concurrent campaigns.
type Pacer struct {
	min, max time.Duration
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPacer(min, max time.Duration, limiter *rate.Limiter) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max, limiter: limiter, sleep: sleepCtx}
}

// Pace waits a random interval in [min, max]. It runs after every attempt regardless of outcome.
func (p *Pacer) Pace(ctx context.Context) error {
	return p.Between(ctx, p.min, p.max)
}

func (p *Pacer) Between(ctx context.Context, lo, hi time.Duration) error {
	return p.sleep(ctx, jitter(lo, hi))
}

func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	return p.sleep(ctx, d)
}

// Acquire blocks until the shared action limiter admits one more click.
func (p *Pacer) Acquire(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

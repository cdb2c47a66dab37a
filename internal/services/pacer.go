package services

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces sequential outbound requests by sleeping for a duration
// drawn uniformly from [min, max] before each call. It carries no retry or
// backoff logic; callers handle failures themselves.
type Pacer struct {
	min   time.Duration
	max   time.Duration
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(context.Context, time.Duration) error
}

// NewPacer creates a pacer with the given delay bounds. max below min is
// treated as a fixed min delay.
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{
		min:   min,
		max:   max,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepContext,
	}
}

// Wait blocks for one jittered delay or until the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.sleep(ctx, p.nextDelay())
}

func (p *Pacer) nextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.max == p.min {
		return p.min
	}
	return p.min + time.Duration(p.rng.Int63n(int64(p.max-p.min)+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

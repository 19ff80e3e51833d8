// Package pacing spaces out browser actions: random human-like pauses and a
// per-host navigation rate limit.
package pacing

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer sleeps for random durations. A nil or zero Pacer never sleeps.
type Pacer struct {
	ActionMin, ActionMax       time.Duration
	CandidateMin, CandidateMax time.Duration

	// Sleep is swapped out in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Uniform returns a duration in [lo, hi]. A reversed range is treated as lo.
func Uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Action pauses between page interactions.
func (p *Pacer) Action(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.Wait(ctx, Uniform(p.ActionMin, p.ActionMax))
}

// Short pauses for a fraction of the action range, used between form steps.
func (p *Pacer) Short(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.Wait(ctx, Uniform(p.ActionMin/2, p.ActionMax/2))
}

// CandidateDelay picks the pause between two candidates.
func (p *Pacer) CandidateDelay() time.Duration {
	if p == nil {
		return 0
	}
	return Uniform(p.CandidateMin, p.CandidateMax)
}

// Wait sleeps for d unless ctx ends first.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	if p == nil || d <= 0 {
		return ctx.Err()
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package pacing

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobbot-engine/internal/browser/browsertest"
)

func TestUniformStaysInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := Uniform(2*time.Second, 5*time.Second)
		if d < 2*time.Second || d > 5*time.Second {
			t.Fatalf("out of range: %v", d)
		}
	}
	if got := Uniform(3*time.Second, time.Second); got != 3*time.Second {
		t.Fatalf("reversed range: got %v", got)
	}
}

func TestPacerUsesConfiguredRanges(t *testing.T) {
	var slept []time.Duration
	p := &Pacer{
		ActionMin: time.Second, ActionMax: 2 * time.Second,
		CandidateMin: 30 * time.Second, CandidateMax: 60 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	ctx := context.Background()
	if err := p.Action(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Short(ctx); err != nil {
		t.Fatal(err)
	}
	d := p.CandidateDelay()
	if err := p.Wait(ctx, d); err != nil {
		t.Fatal(err)
	}
	if len(slept) != 3 {
		t.Fatalf("sleeps=%d", len(slept))
	}
	if slept[0] < time.Second || slept[0] > 2*time.Second {
		t.Errorf("action: %v", slept[0])
	}
	if slept[1] < 500*time.Millisecond || slept[1] > time.Second {
		t.Errorf("short: %v", slept[1])
	}
	if d != slept[2] || d < 30*time.Second || d > 60*time.Second {
		t.Errorf("between: %v", d)
	}
}

func TestSleepInterruptedByCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep ignored cancellation")
	}
}

func TestNilPacerDoesNotSleep(t *testing.T) {
	var p *Pacer
	if err := p.Action(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestThrottleForwardsNavigation(t *testing.T) {
	f := browsertest.New()
	s := Throttle(f, NewHostLimiter(1000, 5))
	ctx := context.Background()
	if err := s.Navigate(ctx, "https://jobs.example.com/"); err != nil {
		t.Fatal(err)
	}
	if err := s.Navigate(ctx, "https://jobs.example.com/next"); err != nil {
		t.Fatal(err)
	}
	if err := s.Back(ctx); err != nil {
		t.Fatal(err)
	}
	if n := f.Count("navigate "); n != 2 {
		t.Fatalf("navigations=%d", n)
	}
	if f.Current != "https://jobs.example.com/" {
		t.Fatalf("current=%q", f.Current)
	}
}

func TestThrottleHonorsCancel(t *testing.T) {
	f := browsertest.New()
	s := Throttle(f, NewHostLimiter(0.001, 1))
	ctx := context.Background()
	if err := s.Navigate(ctx, "https://a.example.com/"); err != nil {
		t.Fatal(err)
	}
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := s.Navigate(cctx, "https://a.example.com/"); err == nil {
		t.Fatal("expected limiter wait to fail")
	}
	if n := f.Count("navigate "); n != 1 {
		t.Fatalf("navigations=%d", n)
	}
}

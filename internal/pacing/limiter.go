package pacing

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"jobbot-engine/internal/browser"
)

// HostLimiter rate-limits navigations per hostname.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(navPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(navPerSec),
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// Throttle wraps s so every Navigate and Back waits on the limiter first.
func Throttle(s browser.Session, hl *HostLimiter) browser.Session {
	if hl == nil {
		return s
	}
	return &throttled{Session: s, hl: hl}
}

type throttled struct {
	browser.Session
	hl      *HostLimiter
	lastURL string
}

func (t *throttled) Navigate(ctx context.Context, url string) error {
	if err := t.hl.WaitURL(ctx, url); err != nil {
		return err
	}
	t.lastURL = url
	return t.Session.Navigate(ctx, url)
}

func (t *throttled) Back(ctx context.Context) error {
	if err := t.hl.WaitURL(ctx, t.lastURL); err != nil {
		return err
	}
	return t.Session.Back(ctx)
}

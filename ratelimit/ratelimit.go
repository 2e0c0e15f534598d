// Package ratelimit enforces per-domain courtesy delays between outbound
// scrape requests. Callers queue FIFO per domain and each release is spaced
// at least the configured interval from the previously released request,
// not from the previous arrival, so near-simultaneous callers cannot burst
// past the limit.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a per-domain request gate. It is safe for concurrent use;
// independent domains never serialize against each other.
type Limiter struct {
	mu       sync.Mutex
	domains  map[string]*rate.Limiter
	interval func(domain string) time.Duration
	jitter   float64
}

// New creates a Limiter with a default inter-request interval and a jitter
// fraction in [0, 1]. Jitter adds a uniform random delay of up to
// jitter×interval after each release, so repeated requests don't land in
// lock-step; it never undercuts the minimum interval. Per-domain overrides
// take precedence over the default.
func New(defaultInterval time.Duration, jitter float64, overrides map[string]time.Duration) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{
		domains: make(map[string]*rate.Limiter),
		jitter:  jitter,
		interval: func(domain string) time.Duration {
			if d, ok := overrides[domain]; ok {
				return d
			}
			return defaultInterval
		},
	}
}

// Acquire blocks until it is safe to issue the next request to domain, or
// until ctx is done. It never fails for rate reasons; the only error is the
// caller's own cancellation or deadline.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	lim := l.limiterFor(domain)
	if lim == nil {
		return nil
	}

	if err := lim.Wait(ctx); err != nil {
		return err
	}

	if l.jitter > 0 {
		iv := l.interval(domain)
		extra := time.Duration(rand.Float64() * l.jitter * float64(iv))
		if extra > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(extra):
			}
		}
	}
	return nil
}

// limiterFor returns the token bucket for domain, creating it on first use.
// A non-positive interval disables limiting for that domain.
func (l *Limiter) limiterFor(domain string) *rate.Limiter {
	iv := l.interval(domain)
	if iv <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.domains[domain]
	if !ok {
		// Burst 1: the first caller passes immediately, every subsequent
		// caller waits a full interval from the previous release.
		lim = rate.NewLimiter(rate.Every(iv), 1)
		l.domains[domain] = lim
	}
	return lim
}

// Package ratelimit implements per-provider fixed-window request counters.
//
// The limiter is the single piece of shared mutable state in the routing
// pipeline, so check-and-increment is atomic under one mutex. State is
// in-memory only; counters do not survive a restart.
package ratelimit

import (
	"sync"
	"time"

	"github.com/askroute/askroute/pkg/config"
)

// Limit caps requests for one provider within a time window.
type Limit struct {
	Window      time.Duration
	MaxRequests int
}

// Usage is a point-in-time view of one provider's window, for observability.
type Usage struct {
	Count       int
	MaxRequests int
	WindowStart time.Time
}

type window struct {
	count int
	start time.Time
}

// Limiter tracks fixed-window counters per provider id.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window

	now func() time.Time
}

// New builds a Limiter from provider configuration.
func New(providers []config.ProviderConfig) *Limiter {
	limits := make(map[string]Limit, len(providers))
	for _, p := range providers {
		limits[p.ID] = Limit{
			Window:      time.Duration(p.RateLimit.WindowSeconds) * time.Second,
			MaxRequests: p.RateLimit.MaxRequests,
		}
	}
	return &Limiter{
		limits:  limits,
		windows: make(map[string]*window, len(limits)),
		now:     time.Now,
	}
}

// TryAcquire reports whether a request to the provider is permitted right
// now, incrementing the window counter as a side effect of granting. The
// window resets (count=0, start=now) once it has fully elapsed, before the
// cap is evaluated. Providers without a configured limit are always permitted.
func (l *Limiter) TryAcquire(providerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limits[providerID]
	if !ok {
		return true
	}

	now := l.now()
	w := l.windows[providerID]
	if w == nil {
		w = &window{start: now}
		l.windows[providerID] = w
	}

	if now.Sub(w.start) >= lim.Window {
		w.count = 0
		w.start = now
	}

	if w.count >= lim.MaxRequests {
		return false
	}
	w.count++
	return true
}

// Snapshot returns current per-provider usage.
func (l *Limiter) Snapshot() map[string]Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Usage, len(l.limits))
	for id, lim := range l.limits {
		u := Usage{MaxRequests: lim.MaxRequests}
		if w := l.windows[id]; w != nil {
			u.Count = w.count
			u.WindowStart = w.start
		}
		out[id] = u
	}
	return out
}

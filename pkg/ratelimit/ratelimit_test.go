package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/askroute/askroute/pkg/config"
)

func newTestLimiter(windowSeconds, maxRequests int) *Limiter {
	return New([]config.ProviderConfig{
		{ID: "p1", RateLimit: config.RateLimitConfig{WindowSeconds: windowSeconds, MaxRequests: maxRequests}},
	})
}

func TestDenyAfterMax(t *testing.T) {
	l := newTestLimiter(60, 3)

	for i := 0; i < 3; i++ {
		if !l.TryAcquire("p1") {
			t.Fatalf("acquisition %d should be permitted", i+1)
		}
	}
	if l.TryAcquire("p1") {
		t.Error("acquisition past max_requests should be denied")
	}
}

func TestWindowReset(t *testing.T) {
	l := newTestLimiter(60, 2)
	l.now = time.Now

	if !l.TryAcquire("p1") || !l.TryAcquire("p1") {
		t.Fatal("first two acquisitions should be permitted")
	}
	if l.TryAcquire("p1") {
		t.Fatal("third acquisition should be denied")
	}

	// Move the clock past the window; the counter must reset before the
	// cap is evaluated.
	base := time.Now()
	l.now = func() time.Time { return base.Add(61 * time.Second) }

	if !l.TryAcquire("p1") {
		t.Error("acquisition after window elapsed should be permitted")
	}
}

func TestUnknownProviderPermitted(t *testing.T) {
	l := newTestLimiter(60, 1)
	if !l.TryAcquire("unconfigured") {
		t.Error("provider without a limit should always be permitted")
	}
}

func TestConcurrentAcquire(t *testing.T) {
	const max = 100
	l := newTestLimiter(60, max)

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.TryAcquire("p1") {
					granted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if granted.Load() != max {
		t.Errorf("expected exactly %d grants under concurrency, got %d", max, granted.Load())
	}
}

func TestSnapshot(t *testing.T) {
	l := newTestLimiter(60, 5)
	l.TryAcquire("p1")
	l.TryAcquire("p1")

	snap := l.Snapshot()
	u, ok := snap["p1"]
	if !ok {
		t.Fatal("expected p1 in snapshot")
	}
	if u.Count != 2 || u.MaxRequests != 5 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

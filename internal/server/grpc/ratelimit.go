package grpc

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit allows Requests calls per Window from one origin address.
// A zero Requests disables the limit.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// pruneEvery is how many calls pass between sweeps of idle addresses.
const pruneEvery = 1024

// addressLimiter keeps one token bucket per origin address. A nil
// *addressLimiter allows everything.
type addressLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	window  time.Duration
	entries map[string]*limiterEntry
	calls   int
}

type limiterEntry struct {
	bucket *rate.Limiter
	seen   time.Time
}

func newAddressLimiter(l RateLimit) *addressLimiter {
	if l.Requests <= 0 || l.Window <= 0 {
		return nil
	}
	return &addressLimiter{
		limit:   rate.Every(l.Window / time.Duration(l.Requests)),
		burst:   l.Requests,
		window:  l.Window,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow consumes one token of address's bucket at now.
func (a *addressLimiter) Allow(address string, now time.Time) bool {
	if a == nil {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if a.calls%pruneEvery == 0 {
		a.prune(now)
	}

	e, ok := a.entries[address]
	if !ok {
		e = &limiterEntry{bucket: rate.NewLimiter(a.limit, a.burst)}
		a.entries[address] = e
	}
	e.seen = now
	return e.bucket.AllowN(now, 1)
}

// prune drops buckets idle for a whole window; they would be full again.
func (a *addressLimiter) prune(now time.Time) {
	for address, e := range a.entries {
		if now.Sub(e.seen) > a.window {
			delete(a.entries, address)
		}
	}
}

func (a *addressLimiter) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

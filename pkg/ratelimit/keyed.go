// Package ratelimit keeps one token bucket per key (session, client address)
// on top of golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed hands out a limiter per key. Limiters idle longer than the TTL are
// dropped by Sweep.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// NewKeyed builds a keyed limiter allowing burst events and then one event
// per interval.
func NewKeyed(interval time.Duration, burst int, ttl time.Duration) *Keyed {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &Keyed{
		limiters: make(map[string]*entry),
		rate:     limit,
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow reports whether one more event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.rate, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Sweep removes limiters idle longer than the TTL.
func (k *Keyed) Sweep() int {
	if k.ttl <= 0 {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	removed := 0
	for key, e := range k.limiters {
		if now.Sub(e.lastSeen) > k.ttl {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// internal/common/ratelimit/limiter.go
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyLimiter rate-limits per client key (remote address, email, ...).
// Limiters idle for longer than ttl are dropped on the next sweep.
type KeyLimiter struct {
	mu     sync.Mutex
	m      map[string]*entry
	r      rate.Limit
	b      int
	ttl    time.Duration
	now    func() time.Time
	lastGC time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewKeyLimiter(reqPerSec float64, burst int) *KeyLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyLimiter{
		m:   make(map[string]*entry),
		r:   rate.Limit(reqPerSec),
		b:   burst,
		ttl: 10 * time.Minute,
		now: time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (kl *KeyLimiter) Allow(key string) bool {
	now := kl.now()
	return kl.limiterFor(key, now).AllowN(now, 1)
}

func (kl *KeyLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if now.Sub(kl.lastGC) > kl.ttl {
		for k, e := range kl.m {
			if now.Sub(e.lastSeen) > kl.ttl {
				delete(kl.m, k)
			}
		}
		kl.lastGC = now
	}

	e, ok := kl.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(kl.r, kl.b)}
		kl.m[key] = e
	}
	e.lastSeen = now
	return e.lim
}

// Len returns the number of tracked keys.
func (kl *KeyLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.m)
}

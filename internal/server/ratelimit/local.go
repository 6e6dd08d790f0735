package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/timex"
	"golang.org/x/time/rate"
)

// LocalLimiter keeps a token bucket per key in process memory. Each bucket
// holds max tokens and refills one token every window/max, which allows a
// burst of max followed by a steady max per window.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	window    time.Duration
	max       int
	clock     timex.Clock
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewLocalLimiter(window time.Duration, max int, clock timex.Clock) *LocalLimiter {
	return &LocalLimiter{
		buckets:   map[string]*bucket{},
		window:    window,
		max:       max,
		clock:     clock,
		lastSweep: clock.Now(),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) error {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.buckets[key] = b
	}
	b.seen = now

	if !b.lim.AllowN(now, 1) {
		return common.ErrRateLimited
	}
	return nil
}

// sweep drops buckets idle for a full window; they would be full again.
func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.window {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// size reports the number of tracked keys.
func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

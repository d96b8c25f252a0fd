package signal

import (
	"sync"

	"github.com/dkeye/Lounge/internal/core"
	"golang.org/x/time/rate"
)

// RateLimiter caps inbound commands per connection.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[core.SubscriberID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perSecond commands with the given burst. A
// non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[core.SubscriberID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *RateLimiter) Allow(id core.SubscriberID) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[id]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[id] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// Forget drops the limiter of a closed connection.
func (rl *RateLimiter) Forget(id core.SubscriberID) {
	rl.mu.Lock()
	delete(rl.limiters, id)
	rl.mu.Unlock()
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

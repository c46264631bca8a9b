package wordpress

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter rate limits requests per host using token buckets, so several
// stores pointed at different sites do not slow each other down.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewHostLimiter creates a HostLimiter allowing rps requests per second to
// each host with the given burst. A burst below 1 is treated as 1.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}

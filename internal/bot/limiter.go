package bot

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiter keeps a token bucket per user.
type limiter struct {
	mu      sync.Mutex
	buckets map[int64]*rate.Limiter
	rate    rate.Limit
	burst   int
}

func newLimiter(r rate.Limit, burst int) *limiter {
	return &limiter{buckets: make(map[int64]*rate.Limiter), rate: r, burst: burst}
}

func (l *limiter) allow(userID int64) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[userID]
	if !ok {
		bucket = rate.NewLimiter(l.rate, l.burst)
		l.buckets[userID] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}

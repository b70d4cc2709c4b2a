package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per grid account
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a limiter allowing requestsPerMinute per account with the given burst.
// A non-positive rate disables limiting.
func NewLimiter(requestsPerMinute int, burst int) *Limiter {
	r := rate.Inf
	if requestsPerMinute > 0 {
		r = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// GetLimiter returns the bucket for an account, creating it on first use
func (l *Limiter) GetLimiter(account string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[account]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[account] = limiter
	}

	return limiter
}

// Allow reports whether a request for the account may proceed now
func (l *Limiter) Allow(account string) bool {
	return l.GetLimiter(account).Allow()
}

// Wait blocks until the account has a token or ctx is done
func (l *Limiter) Wait(ctx context.Context, account string) error {
	return l.GetLimiter(account).Wait(ctx)
}

// Tokens returns the current number of available tokens for an account
func (l *Limiter) Tokens(account string) float64 {
	return l.GetLimiter(account).Tokens()
}

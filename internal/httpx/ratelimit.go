package httpx

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled at maxPerMinute tokens per minute.
type RateLimiter struct {
	mu     sync.Mutex
	tokens int
	max    int
	tick   *time.Ticker
	done   chan struct{}
}

func NewRateLimiter(maxPerMinute int) *RateLimiter {
	if maxPerMinute < 1 {
		maxPerMinute = 1
	}
	rl := &RateLimiter{
		max:    maxPerMinute,
		tokens: maxPerMinute,
		tick:   time.NewTicker(time.Minute / time.Duration(maxPerMinute)),
		done:   make(chan struct{}),
	}
	go rl.refill()
	return rl
}

func (rl *RateLimiter) refill() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.tick.C:
			rl.mu.Lock()
			if rl.tokens < rl.max {
				rl.tokens++
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) Stop() {
	rl.tick.Stop()
	close(rl.done)
}

func LimitMiddleware(rl *RateLimiter, next http.Handler) http.Handler {
	msg := fmt.Sprintf("rate limit: %d req/min", rl.max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow() {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

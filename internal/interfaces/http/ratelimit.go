package http

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCapacity = 4096
	limiterIdleTTL  = 15 * time.Minute
)

// LoginLimiter bounds login attempts per client IP. Limiters of idle IPs
// expire from an LRU.
type LoginLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewLoginLimiter allows perMinute attempts per IP with the given burst
func NewLoginLimiter(perMinute float64, burst int) *LoginLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LoginLimiter{
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCapacity, nil, limiterIdleTTL),
	}
}

// Allow reports whether ip may attempt a login now
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding refreshes the idle expiry.
	l.limiters.Add(ip, lim)
	l.mu.Unlock()

	return lim.Allow()
}

// Middleware aborts over-limit requests through reject
func (l *LoginLimiter) Middleware(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		reject(c)
		c.Abort()
	}
}

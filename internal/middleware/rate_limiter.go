package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket per user (or client IP for anonymous requests).
// Idle buckets expire so the key space stays bounded.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *gocache.Cache
	limit    rate.Limit
	burst    int
	window   time.Duration
}

// NewRateLimiter allows perMinute requests per key with bursts up to burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: gocache.New(10*time.Minute, 5*time.Minute),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		window:   time.Minute,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.limiters.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.SetDefault(key, l)
	return l
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Remaining returns the whole tokens left for key.
func (rl *RateLimiter) Remaining(key string) int {
	n := int(rl.limiter(key).Tokens())
	if n < 0 {
		return 0
	}
	return n
}

// retryAfter is the wait until one token is available again.
func (rl *RateLimiter) retryAfter() time.Duration {
	if rl.limit <= 0 {
		return rl.window
	}
	return time.Duration(float64(time.Second) / float64(rl.limit))
}

// RateLimitMiddleware creates a rate limiting middleware
// Uses user ID from context or falls back to IP address
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			key = userID.String()
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		if !rl.Allow(key) {
			c.Header("X-RateLimit-Remaining", "0")
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many requests, please try again later", int(rl.retryAfter().Milliseconds()))
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(key)))

		c.Next()
	}
}

// DefaultRateLimiter allows 100 requests per minute per user.
func DefaultRateLimiter() *RateLimiter { return NewRateLimiter(100, 100) }

// GenerationRateLimiter allows 10 generation requests per minute per user, in bursts of 3.
func GenerationRateLimiter() *RateLimiter { return NewRateLimiter(10, 3) }

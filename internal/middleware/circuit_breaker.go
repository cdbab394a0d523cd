package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

// CircuitBreakerMiddleware rejects generation requests while the text-generation
// breaker is open.
func CircuitBreakerMiddleware(cb *gobreaker.CircuitBreaker, retryAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cb.State() == gobreaker.StateOpen {
			RespondErrorWithRetry(c, http.StatusServiceUnavailable, ErrCodeCircuitOpen,
				"Text generation is temporarily unavailable due to repeated failures",
				int(retryAfter.Milliseconds()))
			c.Abort()
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lan_messenger/internal/service"
	"lan_messenger/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit throttles by client IP over a sliding window. A limiter failure
// lets the request through; losing a backend should not take the API
// down with it.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := m.rateLimitService.Allow(c.Request.Context(), key)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err, "client_ip", key)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.rateLimitService.Limit()))

		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

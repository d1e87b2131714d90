package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/quizhub-api/pkg/response"
)

// Limiter decides whether key may make another call.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// RateLimit throttles authenticated callers by user id. Requests without claims pass
// through; JWT must run first.
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok || limiter == nil {
			c.Next()
			return
		}
		if err := limiter.Allow(c.Request.Context(), scope+":"+claims.UserID); err != nil {
			response.AbortError(c, err)
			return
		}
		c.Next()
	}
}

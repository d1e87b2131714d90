package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
	"github.com/noah-isme/quizhub-api/pkg/response"
)

// RequireRoles lets the request through only when the verified role is one of roles.
// Admins are always allowed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	allowed[models.RoleAdmin] = struct{}{}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.AbortError(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.AbortError(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}

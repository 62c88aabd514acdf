package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kalamna/auth-api/internal/models"
	"github.com/kalamna/auth-api/internal/token"
	appErrors "github.com/kalamna/auth-api/pkg/errors"
	"github.com/kalamna/auth-api/pkg/response"
)

// RequireRoles restricts a route to employees holding one of the given
// roles. Must run after JWT.
func RequireRoles(roles ...models.EmployeeRole) gin.HandlerFunc {
	allowed := make(map[models.EmployeeRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextClaimsKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*token.Claims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

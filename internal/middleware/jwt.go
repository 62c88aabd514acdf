package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kalamna/auth-api/internal/token"
	appErrors "github.com/kalamna/auth-api/pkg/errors"
	"github.com/kalamna/auth-api/pkg/response"
)

// Gin context keys set by the JWT middleware.
const (
	ContextClaimsKey = "authClaims"
	ContextTokenKey  = "authToken"
)

// JWT protects routes by requiring a valid access token. Claims and the raw
// token are stored on the context for downstream handlers.
func JWT(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := codec.Decode(parts[1], token.AudienceAccess)
		if err != nil {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextTokenKey, parts[1])
		c.Next()
	}
}

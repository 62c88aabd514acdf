package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kalamna/auth-api/internal/middleware"
)

func tokenFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextTokenKey)
	if !exists {
		return ""
	}
	raw, _ := value.(string)
	return raw
}

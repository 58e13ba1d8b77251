package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BusinessKey guards the business-side operations (posting, editing,
// cancelling shifts and accepting applications). An empty required key
// disables the guard for local development.
func BusinessKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-Business-Key")
		if key != required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid business key",
				},
			})
			return
		}
		c.Next()
	}
}

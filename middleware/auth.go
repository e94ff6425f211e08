package middleware

import (
	"net/http"
	"strings"

	"maize-resilience-api/services"

	"github.com/gin-gonic/gin"
)

// RequireOperator guards the admin surface: requests must carry a valid
// bearer token with the operator or admin role.
func RequireOperator(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := authService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if claims.Role != "operator" && claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator role required"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

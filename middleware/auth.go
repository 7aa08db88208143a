package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salon-manager/auth"
)

const UserIDKey = "user_id"

// Auth requires an "Authorization: Bearer <jwt>" header signed with secret.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}

		claims, err := auth.ParseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Next()
	}
}

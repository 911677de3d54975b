package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum/backend/internal/auth"
)

// UserIDKey holds the authenticated caller's id in the gin context.
const UserIDKey = "user_id"

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// AuthMiddleware rejects requests without a valid "Authorization: Bearer" token
// and stores the caller's id under UserIDKey.
func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

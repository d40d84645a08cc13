package middleware

import (
	"net/http"
	"strings"

	"dotted/internal/auth"
	"dotted/internal/httpx"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header and
// attaches the user id, email and role to the request context.
func AuthMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format, use 'Bearer <token>'"})
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(httpx.KeyUserID, claims.UserID)
		c.Set(httpx.KeyUserEmail, claims.Email)
		c.Set(httpx.KeyUserRole, claims.Role)
		c.Next()
	}
}

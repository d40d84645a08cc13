package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	KeyUserID    = "userID"
	KeyUserEmail = "userEmail"
	KeyUserRole  = "userRole"
)

// UserID returns the authenticated user id, writing a 401 when absent.
func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(KeyUserID)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user context"})
		return "", false
	}
	return id, true
}

// Role returns the authenticated role or "".
func Role(c *gin.Context) string {
	role, _ := c.Get(KeyUserRole)
	s, _ := role.(string)
	return s
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dotted/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testTokens = auth.NewTokenIssuer("test-secret-key-for-testing-only", time.Hour)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		userID, _ := c.Get("userID")
		c.JSON(http.StatusOK, gin.H{"userID": userID})
	})
	return router
}

func serve(router *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

// TestAuthMiddleware_MissingAuthHeader tests the middleware with missing Authorization header
func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(AuthMiddleware(testTokens)), ""))
}

// TestAuthMiddleware_InvalidAuthFormat tests the middleware with invalid Bearer format
func TestAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(AuthMiddleware(testTokens)), "InvalidFormat"))
}

// TestAuthMiddleware_InvalidToken tests the middleware with an invalid token
func TestAuthMiddleware_InvalidToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(AuthMiddleware(testTokens)), "Bearer invalid_token_xyz"))
}

// TestAuthMiddleware_ValidToken tests the middleware with a valid token
func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := testTokens.GenerateToken("test-user-id", "test@example.com", auth.RoleRestaurant)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(newRouter(AuthMiddleware(testTokens)), "Bearer "+token))
}

func TestRequireRole(t *testing.T) {
	token, err := testTokens.GenerateToken("u1", "c@example.com", auth.RoleConsumer)
	require.NoError(t, err)

	router := newRouter(AuthMiddleware(testTokens), RequireRole(auth.RoleRestaurant, auth.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer "+token))

	token, err = testTokens.GenerateToken("u2", "a@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(router, "Bearer "+token))

	// Without the auth middleware there is no role at all.
	assert.Equal(t, http.StatusForbidden, serve(newRouter(RequireRole(auth.RoleAdmin)), ""))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := newRouter(RequestLogger(zap.New(core)))

	assert.Equal(t, http.StatusOK, serve(router, ""))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, "/test", entry.ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, entry.ContextMap()["status"])
}

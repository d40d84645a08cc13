package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTFlow(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key-12345", time.Hour)

	userID := uuid.New().String()
	token, err := issuer.GenerateToken(userID, "test@example.com", RoleConsumer)
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, RoleConsumer, claims.Role)
}

func TestJWTRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, err := other.GenerateToken("u1", "x@example.com", RoleConsumer)
	require.NoError(t, err)
	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenIssuer("secret-a", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.GenerateToken("u1", "x@example.com", RoleConsumer)
	require.NoError(t, err)
	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.GenerateToken("", "x@example.com", RoleConsumer)
	assert.Error(t, err)
}

package auth

import (
	"context"
	"testing"
	"time"

	"dotted/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *InMemoryUserRepository) {
	repo := NewInMemoryUserRepository()
	return NewService(repo, NewTokenIssuer("test-secret-key-12345", time.Hour)), repo
}

func TestPasswordIsHashedBeforeSaving(t *testing.T) {
	service, repo := newTestService()
	password := "Password@123"

	_, err := service.Register(context.Background(), "Test User", "test@example.com", password, "")
	require.NoError(t, err)

	user := repo.users["test@example.com"]
	require.NotNil(t, user, "user not found")
	assert.NotEqual(t, password, user.Password, "password was stored in plain text")
	assert.Equal(t, RoleConsumer, user.Role, "role defaults to consumer")
}

func TestRegisterRejects(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	_, err := service.Register(ctx, "", "a@example.com", "Password@123", "")
	assert.ErrorIs(t, err, core.ErrInvalid)

	_, err = service.Register(ctx, "Boss", "boss@example.com", "Password@123", RoleAdmin)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = service.Register(ctx, "X", "not-an-email", "Password@123", "")
	assert.ErrorIs(t, err, core.ErrInvalid)

	_, err = service.Register(ctx, "Dup", "dup@example.com", "Password@123", RoleSupplier)
	require.NoError(t, err)
	_, err = service.Register(ctx, "Dup", "DUP@example.com", "Password@123", RoleSupplier)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginIssuesToken(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	registered, err := service.Register(ctx, "Chef", "chef@example.com", "Password@123", RoleRestaurant)
	require.NoError(t, err)

	_, _, err = service.Login(ctx, "chef@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, token, err := service.Login(ctx, "chef@example.com", "Password@123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	claims, err := service.Tokens().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, RoleRestaurant, claims.Role)
}

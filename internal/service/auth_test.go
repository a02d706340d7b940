package service

import (
	"context"
	"testing"

	"github.com/aman-churiwal/quota-gate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(repository.NewUserRepository(newTestDB(t)), "test-secret", 1)
}

func TestLoginRoundTrip(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "hunter22"))

	token, err := svc.Login(ctx, "admin@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims["email"])
	assert.Equal(t, "admin", claims["role"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "hunter22"))

	_, err := svc.Login(ctx, "admin@example.com", "wrong")
	assert.Error(t, err)

	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.Error(t, err)
}

func TestEnsureAdminIdempotent(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "hunter22"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@example.com", "other"))

	// The original password still works; the second call was a no-op.
	_, err := svc.Login(ctx, "admin@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository/memory"
	"claims-portal/internal/seed"
)

func TestAuthenticate(t *testing.T) {
	svc := NewIdentityService(memory.NewUserRepository(seed.Default().Users))
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "APPROVER@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleApprover, user.Role)
	assert.Equal(t, domain.RouteApproverDashboard, user.HomeRoute())

	_, err = svc.Authenticate(ctx, "stranger@example.com")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

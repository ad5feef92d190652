package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
	"claims-portal/internal/seed"
)

func newSeeded(t *testing.T) *ClaimRepository {
	t.Helper()
	repo := NewClaimRepository()
	require.NoError(t, repo.Seed(context.Background(), seed.Default().Claims))
	return repo
}

func TestClaimRepositoryKeepsSeedOrder(t *testing.T) {
	repo := newSeeded(t)

	claims, err := repo.List(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"C-1025", "C-1024", "C-1026", "C-1023"}, ids)
}

func TestClaimRepositoryInsertPrepends(t *testing.T) {
	ctx := context.Background()
	repo := newSeeded(t)

	claim := domain.Claim{
		ID:     "C-2000",
		Status: domain.ClaimStatusSubmitted,
		StatusHistory: []domain.ClaimStatusUpdate{
			{Status: domain.ClaimStatusSubmitted, Timestamp: time.Now()},
		},
	}
	require.NoError(t, repo.Insert(ctx, claim))

	claims, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C-2000", claims[0].ID)

	err = repo.Insert(ctx, claim)
	assert.ErrorIs(t, err, repository.ErrDuplicateClaim)
}

func TestClaimRepositoryAppendStatus(t *testing.T) {
	ctx := context.Background()
	repo := newSeeded(t)

	before, err := repo.Get(ctx, "C-1024")
	require.NoError(t, err)

	update := domain.ClaimStatusUpdate{Status: domain.ClaimStatusApproved, Timestamp: time.Now(), Notes: "ok"}
	after, err := repo.AppendStatus(ctx, "C-1024", update)
	require.NoError(t, err)

	assert.Equal(t, domain.ClaimStatusApproved, after.Status)
	assert.Len(t, after.StatusHistory, len(before.StatusHistory)+1)
	assert.NoError(t, after.CheckHistory())

	_, err = repo.AppendStatus(ctx, "C-0000", update)
	assert.ErrorIs(t, err, repository.ErrClaimNotFound)
}

func TestClaimRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := newSeeded(t)

	c, err := repo.Get(ctx, "C-1025")
	require.NoError(t, err)
	c.StatusHistory[0].Notes = "mutated"
	c.Documents = nil

	again, err := repo.Get(ctx, "C-1025")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.StatusHistory[0].Notes)
	assert.NotEmpty(t, again.Documents)
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	repo := NewUserRepository(seed.Default().Users)
	ctx := context.Background()

	u, err := repo.FindByEmail(ctx, "  Customer@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	approver, err := repo.GetByID(ctx, "user-approver-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleApprover, approver.Role)
}

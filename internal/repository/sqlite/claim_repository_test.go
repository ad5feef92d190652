package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
	"claims-portal/internal/seed"
)

func newRepo(t *testing.T) repository.ClaimRepository {
	t.Helper()
	db, err := OpenMemory("test-" + uuid.NewString())
	require.NoError(t, err)

	repo := NewClaimRepository(db)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Seed(ctx, seed.Default().Claims))
	return repo
}

func TestSeedListsInDisplayOrder(t *testing.T) {
	repo := newRepo(t)

	claims, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, claims, 4)

	want := seed.Default().Claims
	for i := range want {
		assert.Equal(t, want[i].ID, claims[i].ID)
		assert.Equal(t, want[i].PolicyholderName, claims[i].PolicyholderName)
		assert.Len(t, claims[i].Documents, len(want[i].Documents))
		require.Len(t, claims[i].StatusHistory, len(want[i].StatusHistory))
		assert.True(t, want[i].StatusHistory[0].Timestamp.Equal(claims[i].StatusHistory[0].Timestamp))
		assert.NoError(t, claims[i].CheckHistory())
	}
}

func TestInsertRoundTripsOptionalFields(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	fraud := 1
	claim := domain.Claim{
		ID:               "C-ABCDEF12",
		PolicyNumber:     "PN-1",
		PolicyholderID:   "user-1",
		PolicyholderName: "Krit Lunkad",
		ClaimType:        "Vehicle",
		ClaimedAmount:    1234.5,
		Documents:        []domain.ClaimFile{{Name: "a.pdf", Type: "application/pdf", DataURL: "data:application/pdf;base64,AA=="}},
		Fraud:            &fraud,
		Status:           domain.ClaimStatusSubmitted,
		StatusHistory:    []domain.ClaimStatusUpdate{{Status: domain.ClaimStatusSubmitted, Timestamp: time.Now().UTC()}},
		Ledger:           &domain.LedgerRef{TopicID: "0.0.1", Raw: json.RawMessage(`{"topic_id":"0.0.1"}`)},
	}
	require.NoError(t, repo.Insert(ctx, claim))
	assert.ErrorIs(t, repo.Insert(ctx, claim), repository.ErrDuplicateClaim)

	claims, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C-ABCDEF12", claims[0].ID)

	got, err := repo.Get(ctx, "C-ABCDEF12")
	require.NoError(t, err)
	require.NotNil(t, got.Fraud)
	assert.Equal(t, 1, *got.Fraud)
	require.NotNil(t, got.Ledger)
	assert.Equal(t, "0.0.1", got.Ledger.TopicID)
	assert.JSONEq(t, `{"topic_id":"0.0.1"}`, string(got.Ledger.Raw))
	assert.Equal(t, claim.Documents, got.Documents)
}

func TestAppendStatusIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	got, err := repo.AppendStatus(ctx, "C-1024", domain.ClaimStatusUpdate{
		Status:    domain.ClaimStatusApproved,
		Timestamp: time.Now().UTC(),
		Notes:     "Claim approved by approver.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusApproved, got.Status)
	assert.Len(t, got.StatusHistory, 3)
	assert.NoError(t, got.CheckHistory())

	_, err = repo.AppendStatus(ctx, "C-9999", domain.ClaimStatusUpdate{Status: domain.ClaimStatusRejected})
	assert.ErrorIs(t, err, repository.ErrClaimNotFound)

	_, err = repo.Get(ctx, "C-9999")
	assert.ErrorIs(t, err, repository.ErrClaimNotFound)
}

func TestSessionsDoNotShareDatabases(t *testing.T) {
	ctx := context.Background()
	a := newRepo(t)
	b := newRepo(t)

	_, err := a.AppendStatus(ctx, "C-1026", domain.ClaimStatusUpdate{Status: domain.ClaimStatusRejected, Timestamp: time.Now()})
	require.NoError(t, err)

	other, err := b.Get(ctx, "C-1026")
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimStatusSubmitted, other.Status)
}

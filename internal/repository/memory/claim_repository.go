package memory

import (
	"context"
	"sync"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
)

// ClaimRepository keeps claims in display order. Index 0 is the newest claim.
type ClaimRepository struct {
	mu     sync.RWMutex
	claims []domain.Claim
}

var _ repository.ClaimRepository = (*ClaimRepository)(nil)

func NewClaimRepository() *ClaimRepository {
	return &ClaimRepository{}
}

func (r *ClaimRepository) Init(context.Context) error { return nil }

func (r *ClaimRepository) Seed(_ context.Context, claims []domain.Claim) error {
	seen := make(map[string]struct{}, len(claims))
	out := make([]domain.Claim, 0, len(claims))
	for _, c := range claims {
		if _, dup := seen[c.ID]; dup {
			return repository.ErrDuplicateClaim
		}
		seen[c.ID] = struct{}{}
		out = append(out, c.Clone())
	}

	r.mu.Lock()
	r.claims = out
	r.mu.Unlock()
	return nil
}

func (r *ClaimRepository) List(context.Context) ([]domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Claim, len(r.claims))
	for i, c := range r.claims {
		out[i] = c.Clone()
	}
	return out, nil
}

func (r *ClaimRepository) Get(_ context.Context, id string) (*domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, repository.ErrClaimNotFound
	}
	c := r.claims[idx].Clone()
	return &c, nil
}

func (r *ClaimRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(id) >= 0, nil
}

func (r *ClaimRepository) Insert(_ context.Context, claim domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(claim.ID) >= 0 {
		return repository.ErrDuplicateClaim
	}
	r.claims = append([]domain.Claim{claim.Clone()}, r.claims...)
	return nil
}

func (r *ClaimRepository) AppendStatus(_ context.Context, id string, update domain.ClaimStatusUpdate) (*domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, repository.ErrClaimNotFound
	}
	c := &r.claims[idx]
	c.StatusHistory = append(c.StatusHistory, update)
	c.Status = update.Status

	out := c.Clone()
	return &out, nil
}

func (r *ClaimRepository) Close() error {
	r.mu.Lock()
	r.claims = nil
	r.mu.Unlock()
	return nil
}

func (r *ClaimRepository) indexOf(id string) int {
	for i := range r.claims {
		if r.claims[i].ID == id {
			return i
		}
	}
	return -1
}

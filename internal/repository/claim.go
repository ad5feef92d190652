package repository

import (
	"context"
	"errors"

	"claims-portal/internal/domain"
)

var (
	ErrClaimNotFound  = errors.New("claim not found")
	ErrDuplicateClaim = errors.New("claim id already exists")
)

// ClaimRepository holds one session's claims, newest first.
type ClaimRepository interface {
	Init(ctx context.Context) error
	// Seed replaces the contents with claims, keeping the given display order.
	Seed(ctx context.Context, claims []domain.Claim) error
	List(ctx context.Context) ([]domain.Claim, error)
	Get(ctx context.Context, id string) (*domain.Claim, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Insert prepends a claim. It fails with ErrDuplicateClaim if the id is taken.
	Insert(ctx context.Context, claim domain.Claim) error
	// AppendStatus records update and makes it the claim's current status in one step.
	AppendStatus(ctx context.Context, id string, update domain.ClaimStatusUpdate) (*domain.Claim, error)
	Close() error
}

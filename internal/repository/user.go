package repository

import (
	"context"
	"errors"

	"claims-portal/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the read-only identity store.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

package service

import (
	"context"
	"errors"
	"strings"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for any failed login. It never says whether the email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is returned when an operation needs a logged-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// IdentityService resolves login emails against the identity store.
type IdentityService interface {
	Authenticate(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type identityService struct {
	users repository.UserRepository
}

func NewIdentityService(users repository.UserRepository) IdentityService {
	return &identityService{users: users}
}

func (s *identityService) Authenticate(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

func (s *identityService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

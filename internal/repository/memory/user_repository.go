// Package memory provides slice-backed repositories for session-scoped state.
package memory

import (
	"context"
	"strings"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
)

// UserRepository is a fixed identity store keyed by lower-cased email.
type UserRepository struct {
	users   []domain.User
	byEmail map[string]int
	byID    map[string]int
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository(users []domain.User) *UserRepository {
	r := &UserRepository{
		users:   append([]domain.User(nil), users...),
		byEmail: make(map[string]int, len(users)),
		byID:    make(map[string]int, len(users)),
	}
	for i, u := range r.users {
		r.byEmail[normalizeEmail(u.Email)] = i
		r.byID[u.ID] = i
	}
	return r
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	idx, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := r.users[idx]
	return &u, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	idx, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := r.users[idx]
	return &u, nil
}

func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	return append([]domain.User(nil), r.users...), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

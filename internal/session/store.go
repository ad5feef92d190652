package session

import (
	"context"
	"sync"
	"time"

	"claims-portal/internal/domain"
)

// Record is what a Store keeps about a live session.
type Record struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Store tracks session validity. Lookup returns ErrSessionNotFound for
// expired or revoked sessions.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Lookup(ctx context.Context, id string) (Record, error)
	Revoke(ctx context.Context, id string) error
	Close() error
}

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	if s.expired(rec) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// A Save may have refreshed the record since the read lock was released.
		rec, ok = s.records[id]
		if !ok {
			return Record{}, ErrSessionNotFound
		}
		if s.expired(rec) {
			delete(s.records, id)
			return Record{}, ErrSessionNotFound
		}
	}
	return rec, nil
}

func (s *MemoryStore) expired(rec Record) bool {
	return !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt)
}

func (s *MemoryStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

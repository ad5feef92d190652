package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"claims-portal/internal/domain"
	"claims-portal/internal/metrics"
	"claims-portal/internal/repository"
	"claims-portal/internal/repository/memory"
	"claims-portal/internal/repository/sqlite"
	"claims-portal/internal/service"
)

// ClaimStoreFactory opens an empty claim store for a new session.
type ClaimStoreFactory func(ctx context.Context, sessionID string) (repository.ClaimRepository, error)

// MemoryClaimStores returns a factory for slice-backed stores.
func MemoryClaimStores() ClaimStoreFactory {
	return func(context.Context, string) (repository.ClaimRepository, error) {
		return memory.NewClaimRepository(), nil
	}
}

// SQLiteClaimStores returns a factory that gives each session its own
// in-memory sqlite database.
func SQLiteClaimStores() ClaimStoreFactory {
	return func(_ context.Context, sessionID string) (repository.ClaimRepository, error) {
		db, err := sqlite.OpenMemory("session-" + sessionID)
		if err != nil {
			return nil, err
		}
		return sqlite.NewClaimRepository(db), nil
	}
}

type ManagerConfig struct {
	Identity    service.IdentityService
	ClaimStores ClaimStoreFactory
	// NewClaims builds the lifecycle manager on top of a session's store.
	NewClaims func(repository.ClaimRepository) service.ClaimService
	// SeedClaims is copied into every new session's store.
	SeedClaims []domain.Claim
	Store      Store
	Tokens     *Tokens
	TTL        time.Duration
	Logger     *logrus.Logger
}

// Manager is the registry of live sessions.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Controller
	onClose  []func(sessionID string)
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.ClaimStores == nil {
		cfg.ClaimStores = MemoryClaimStores()
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Manager{cfg: cfg, sessions: make(map[string]*Controller)}
}

// Create opens a session with a freshly seeded claim workspace and returns
// its controller and token.
func (m *Manager) Create(ctx context.Context) (*Controller, string, error) {
	id := uuid.NewString()

	store, err := m.cfg.ClaimStores(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("open claim store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, "", fmt.Errorf("init claim store: %w", err)
	}
	if err := store.Seed(ctx, m.cfg.SeedClaims); err != nil {
		_ = store.Close()
		return nil, "", fmt.Errorf("seed claim store: %w", err)
	}

	ctrl := NewController(id, m.cfg.Identity, store, m.cfg.NewClaims(store), m.cfg.Logger)

	token, err := m.save(ctx, ctrl)
	if err != nil {
		_ = ctrl.Close()
		return nil, "", err
	}

	m.mu.Lock()
	m.sessions[id] = ctrl
	m.mu.Unlock()
	metrics.SessionOpened()

	m.cfg.Logger.WithField("session_id", id).Debug("session created")
	return ctrl, token, nil
}

// Resolve returns the controller a token refers to. Sessions whose record has
// expired or been revoked are torn down and reported as ErrSessionNotFound.
func (m *Manager) Resolve(ctx context.Context, token string) (*Controller, error) {
	claims, err := m.cfg.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if _, err := m.cfg.Store.Lookup(ctx, claims.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			m.drop(claims.SessionID)
		}
		return nil, err
	}

	m.mu.Lock()
	ctrl, ok := m.sessions[claims.SessionID]
	m.mu.Unlock()
	if !ok {
		// The record outlived this process; the workspace is gone.
		_ = m.cfg.Store.Revoke(ctx, claims.SessionID)
		return nil, ErrSessionNotFound
	}

	// Login and logout reissue the token; older ones stop working.
	var userID string
	if user := ctrl.CurrentUser(); user != nil {
		userID = user.ID
	}
	if claims.Subject != userID {
		return nil, fmt.Errorf("%w: token was issued for another identity", ErrInvalidToken)
	}
	return ctrl, nil
}

// OnClose registers fn to run with the session id whenever a session is torn
// down, whether destroyed, expired or shut down.
func (m *Manager) OnClose(fn func(sessionID string)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.onClose = append(m.onClose, fn)
	m.mu.Unlock()
}

// Touch refreshes the stored record after the controller's user changed and
// returns a token carrying the new identity.
func (m *Manager) Touch(ctx context.Context, ctrl *Controller) (string, error) {
	return m.save(ctx, ctrl)
}

// Destroy revokes the session and releases its workspace.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if err := m.cfg.Store.Revoke(ctx, id); err != nil {
		return err
	}
	if !m.drop(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Sweep tears down sessions whose record is no longer in the store.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		_, err := m.cfg.Store.Lookup(ctx, id)
		if errors.Is(err, ErrSessionNotFound) && m.drop(id) {
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				m.cfg.Logger.Infof("expired %d sessions", n)
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session workspace and the session store.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for id, ctrl := range sessions {
		m.closeSession(id, ctrl)
	}
	if err := m.cfg.Store.Close(); err != nil {
		m.cfg.Logger.Warnf("close session store: %v", err)
	}
}

func (m *Manager) save(ctx context.Context, ctrl *Controller) (string, error) {
	user := ctrl.CurrentUser()
	token, _, err := m.cfg.Tokens.Issue(ctrl.ID(), user)
	if err != nil {
		return "", err
	}

	rec := Record{
		ID:        ctrl.ID(),
		CreatedAt: ctrl.createdAt,
		ExpiresAt: time.Now().Add(m.cfg.TTL).UTC(),
	}
	if user != nil {
		rec.UserID = user.ID
		rec.Role = user.Role
	}
	if err := m.cfg.Store.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

func (m *Manager) drop(id string) bool {
	m.mu.Lock()
	ctrl, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.closeSession(id, ctrl)
	return true
}

func (m *Manager) closeSession(id string, ctrl *Controller) {
	if err := ctrl.Close(); err != nil {
		m.cfg.Logger.WithField("session_id", id).Warnf("close session: %v", err)
	}
	metrics.SessionClosed()

	m.mu.Lock()
	hooks := append([]func(string){}, m.onClose...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}
}

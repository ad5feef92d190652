// Package session owns per-client application state: who is logged in, the
// claim workspace they act on, and the loading flag that gates submissions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
	"claims-portal/internal/service"
)

// Controller is the application state of one session. It is created by the
// Manager and torn down by Close.
type Controller struct {
	id        string
	createdAt time.Time
	identity  service.IdentityService
	claims    service.ClaimService
	store     repository.ClaimRepository
	logger    *logrus.Entry

	mu      sync.Mutex
	user    *domain.User
	loading bool
	closed  bool
}

func NewController(id string, identity service.IdentityService, store repository.ClaimRepository, claims service.ClaimService, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	return &Controller{
		id:        id,
		createdAt: time.Now().UTC(),
		identity:  identity,
		claims:    claims,
		store:     store,
		logger:    logger.WithField("session_id", id),
	}
}

func (c *Controller) ID() string { return c.id }

// Login sets the current user and returns the view they land on. A failed
// login leaves the current user untouched.
func (c *Controller) Login(ctx context.Context, email string) (domain.Route, error) {
	user, err := c.identity.Authenticate(ctx, email)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.user = user
	c.mu.Unlock()

	c.logger.WithField("user_id", user.ID).Info("user logged in")
	return user.HomeRoute(), nil
}

// Logout clears the current user. The claim workspace is kept.
func (c *Controller) Logout() domain.Route {
	c.mu.Lock()
	prev := c.user
	c.user = nil
	c.mu.Unlock()

	if prev != nil {
		c.logger.WithField("user_id", prev.ID).Info("user logged out")
	}
	return domain.RouteLogin
}

func (c *Controller) CurrentUser() *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Controller) Claims() service.ClaimService {
	return c.claims
}

// Begin raises the loading flag. It fails with ErrBusy if the flag is already
// raised; otherwise the caller must invoke done when the operation finishes.
func (c *Controller) Begin() (done func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return nil, ErrBusy
	}
	c.loading = true

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.loading = false
			c.mu.Unlock()
		})
	}, nil
}

func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Close drops the user and releases the claim workspace. It is safe to call twice.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.user = nil
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

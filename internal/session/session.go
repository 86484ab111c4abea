// Package session holds the resolved-tenant state for one browsing session.
// A Context is created empty at bootstrap, bound to exactly one tenant, and
// passed explicitly to every component that needs the binding.
package session

import (
	"errors"
	"sync"

	"github.com/caravela-labs/tenantdash/internal/tenant"
)

// ErrAlreadyBound is returned when Bind is called on a context that already
// has an active tenant. Rebinding without an intervening Unbind would risk
// leaking one tenant's state into another's session.
var ErrAlreadyBound = errors.New("session: tenant already bound")

// UserRef identifies the authenticated principal attached to the session.
type UserRef struct {
	ID          string
	Role        string
	Description string
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	TenantID     string
	TenantConfig *tenant.Config
	CurrentUser  *UserRef
}

// Context is the single piece of mutable shared state in the core. It is
// mutated only by the bootstrap path (Bind) and the sign-out path (Unbind);
// section loaders read it through Current.
type Context struct {
	mu     sync.RWMutex
	id     string
	config *tenant.Config
	user   *UserRef
}

// New creates an empty, unbound session context.
func New() *Context {
	return &Context{}
}

// Bind sets the active tenant for the session. Calling Bind twice without an
// intervening Unbind fails with ErrAlreadyBound.
func (c *Context) Bind(id string, cfg *tenant.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.id != "" {
		return ErrAlreadyBound
	}

	c.id = id
	c.config = cfg
	return nil
}

// Unbind clears the tenant and user fields. It is idempotent.
func (c *Context) Unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.id = ""
	c.config = nil
	c.user = nil
}

// Bound reports whether a tenant is currently bound.
func (c *Context) Bound() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id != ""
}

// SetUser attaches the authenticated principal. Called by the authentication
// collaborator after a successful login.
func (c *Context) SetUser(u *UserRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

// ClearUser detaches the principal without unbinding the tenant.
func (c *Context) ClearUser() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
}

// Current returns a read-only snapshot of the session state.
func (c *Context) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		TenantID:     c.id,
		TenantConfig: c.config,
		CurrentUser:  c.user,
	}
}

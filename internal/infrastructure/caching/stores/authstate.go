package stores

import (
	"sync"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

// AuthStateStore caches the resolved login state. It starts in the unknown
// status and only ever moves to logged-in or logged-out via explicit writes,
// so readers can tell an unresolved session from an anonymous one.
type AuthStateStore struct {
	state   user.AuthState
	changed time.Time
	mu      sync.RWMutex
	logger  *logging.ChanneledLogger
}

// NewAuthStateStore creates a new auth state cache store
func NewAuthStateStore(logger *logging.ChanneledLogger) *AuthStateStore {
	if logger != nil {
		logger.Cache().Info("Initializing auth state cache store")
	}
	return &AuthStateStore{
		state:  user.AuthState{Status: user.AuthStatusUnknown},
		logger: logger,
	}
}

// Snapshot returns an independent copy of the current auth state.
func (as *AuthStateStore) Snapshot() user.AuthState {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return as.state.Clone()
}

// SetLoggedIn records a successful authentication.
func (as *AuthStateStore) SetLoggedIn(u *user.AuthenticatedUser) {
	as.mu.Lock()
	defer as.mu.Unlock()

	as.state = user.AuthState{Status: user.AuthStatusLoggedIn, User: u}
	as.state = as.state.Clone()
	as.changed = time.Now().UTC()

	if as.logger != nil {
		as.logger.Cache().Debug("Cache operation", "operation", "set", "type", "auth_state", "status", user.AuthStatusLoggedIn)
	}
}

// SetLoggedOut records the absence of a session and drops the cached identity.
func (as *AuthStateStore) SetLoggedOut() {
	as.mu.Lock()
	defer as.mu.Unlock()

	as.state = user.AuthState{Status: user.AuthStatusLoggedOut}
	as.changed = time.Now().UTC()

	if as.logger != nil {
		as.logger.Cache().Debug("Cache operation", "operation", "set", "type", "auth_state", "status", user.AuthStatusLoggedOut)
	}
}

// Reset returns the store to the unknown status, forcing the next consumer
// to re-resolve the session.
func (as *AuthStateStore) Reset() {
	as.mu.Lock()
	defer as.mu.Unlock()

	as.state = user.AuthState{Status: user.AuthStatusUnknown}
	as.changed = time.Now().UTC()

	if as.logger != nil {
		as.logger.Cache().Debug("Cache operation", "operation", "reset", "type", "auth_state")
	}
}

// CurrentUser returns the logged-in identity, or nil when not logged in.
func (as *AuthStateStore) CurrentUser() *user.AuthenticatedUser {
	as.mu.RLock()
	defer as.mu.RUnlock()

	if as.state.Status != user.AuthStatusLoggedIn {
		return nil
	}
	return as.state.Clone().User
}

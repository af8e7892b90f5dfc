// Package manager aggregates the cache stores behind a single entry point so
// the container wires one dependency instead of each store individually.
package manager

import (
	"time"

	"github.com/compass-coaching/compass-go/internal/infrastructure/caching/stores"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

// Manager owns the in-process cache stores.
type Manager struct {
	Preferences *stores.PreferencesStore
	AuthState   *stores.AuthStateStore

	startTime time.Time
	logger    *logging.ChanneledLogger
}

// NewManager creates the cache manager and all of its stores.
func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager")
	}
	return &Manager{
		Preferences: stores.NewPreferencesStore(logger),
		AuthState:   stores.NewAuthStateStore(logger),
		startTime:   time.Now(),
		logger:      logger,
	}
}

// ClearUserState drops everything tied to the current user. Called on logout
// and on forced deauthentication.
func (m *Manager) ClearUserState() {
	m.Preferences.Clear()
	m.AuthState.SetLoggedOut()

	if m.logger != nil {
		m.logger.Cache().Info("User state cleared")
	}
}

// Status returns a summary for the health endpoint.
func (m *Manager) Status() map[string]any {
	return map[string]any{
		"uptime":            time.Since(m.startTime).String(),
		"preferencesLoaded": !m.Preferences.LastLoaded().IsZero(),
		"authStatus":        m.AuthState.Snapshot().Status,
	}
}

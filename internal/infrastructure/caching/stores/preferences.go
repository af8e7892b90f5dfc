// Package stores provides concrete cache store implementations
package stores

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

// PreferencesStore is the in-process cache for the current user's preference
// record. All reads and writes go through deep clones so no caller ever holds
// a reference into the cached value.
//
// Failure policy is asymmetric on purpose: a Get that cannot produce a clone
// degrades to a miss (callers refetch), while a Set that cannot clone is a
// hard error, because silently caching a shared reference would let later
// mutations corrupt the store.
type PreferencesStore struct {
	current *user.Preference
	loaded  time.Time
	mu      sync.RWMutex
	logger  *logging.ChanneledLogger
}

// NewPreferencesStore creates a new preferences cache store
func NewPreferencesStore(logger *logging.ChanneledLogger) *PreferencesStore {
	if logger != nil {
		logger.Cache().Info("Initializing preferences cache store")
	}
	return &PreferencesStore{logger: logger}
}

// Get returns a deep clone of the cached preference, or nil when nothing is
// cached or the clone fails.
func (ps *PreferencesStore) Get() *user.Preference {
	start := time.Now()
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.current == nil {
		if ps.logger != nil {
			ps.logger.Cache().Debug("Cache operation", "operation", "get", "type", "preference", "hit", false, "duration", time.Since(start))
		}
		return nil
	}

	clone, err := clonePreference(ps.current)
	if err != nil {
		if ps.logger != nil {
			ps.logger.Cache().Warn("Preference clone failed on read, treating as miss", "error", err.Error(), "userId", ps.current.UserID)
		}
		return nil
	}

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "get", "type", "preference", "hit", true, "duration", time.Since(start))
	}
	return clone
}

// Set replaces the cached preference with a deep clone of pref.
func (ps *PreferencesStore) Set(pref *user.Preference) error {
	start := time.Now()

	var clone *user.Preference
	if pref != nil {
		var err error
		clone, err = clonePreference(pref)
		if err != nil {
			if ps.logger != nil {
				ps.logger.Cache().Error("Preference clone failed on write", "error", err.Error(), "userId", pref.UserID)
			}
			return fmt.Errorf("preference not cacheable: %w", err)
		}
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.current = clone
	ps.loaded = time.Now().UTC()

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "set", "type", "preference", "cleared", clone == nil, "duration", time.Since(start))
	}
	return nil
}

// GetActiveSessionID returns the head of the cached session list.
func (ps *PreferencesStore) GetActiveSessionID() (int, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.current.ActiveSessionID()
}

// Clear drops the cached preference, e.g. on logout.
func (ps *PreferencesStore) Clear() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.current = nil
	ps.loaded = time.Time{}

	if ps.logger != nil {
		ps.logger.Cache().Debug("Cache operation", "operation", "clear", "type", "preference")
	}
}

// LastLoaded reports when the cache was last written.
func (ps *PreferencesStore) LastLoaded() time.Time {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.loaded
}

// clonePreference deep-copies via a JSON round-trip. The Preference type is
// fully typed, so timestamps and enums survive the trip intact.
func clonePreference(pref *user.Preference) (*user.Preference, error) {
	encoded, err := json.Marshal(pref)
	if err != nil {
		return nil, err
	}
	var clone user.Preference
	if err := json.Unmarshal(encoded, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

// Package storage defines the per-user durable key-value store that backs
// client-side state which must survive restarts: cached preferences, the
// personal information draft, and the last login method.
package storage

import "time"

// Key identifies one of the fixed slots a user may persist. The set is
// closed; writes under any other key are rejected at the service layer.
type Key string

const (
	// KeyUserPreferences caches the last known preference snapshot.
	KeyUserPreferences Key = "user_preferences"
	// KeyPersonalInfo holds the in-progress personal information draft.
	KeyPersonalInfo Key = "personal_info"
	// KeyLoginMethod records how the user last signed in.
	KeyLoginMethod Key = "login_method"
)

// IsValid reports whether k is one of the known slots.
func (k Key) IsValid() bool {
	switch k {
	case KeyUserPreferences, KeyPersonalInfo, KeyLoginMethod:
		return true
	}
	return false
}

// Entry is a single stored value. Value carries raw JSON so callers decode
// into their own types.
type Entry struct {
	UserID  string    `json:"userId"`
	Key     Key       `json:"key"`
	Value   []byte    `json:"value"`
	Changed time.Time `json:"changed"`
}

// Repository is the persistence contract for per-user entries.
type Repository interface {
	Find(userID string, key Key) (*Entry, error)
	Put(entry *Entry) error
	Delete(userID string, key Key) error
}

package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActiveSessionIDIsHeadOfList(t *testing.T) {
	pref := &Preference{Sessions: []int{30, 12, 7}}

	id, ok := pref.ActiveSessionID()
	assert.True(t, ok)
	assert.Equal(t, 30, id, "active session is the head, not the most recent value")
}

func TestActiveSessionIDEmpty(t *testing.T) {
	pref := &Preference{}
	_, ok := pref.ActiveSessionID()
	assert.False(t, ok)

	var nilPref *Preference
	_, ok = nilPref.ActiveSessionID()
	assert.False(t, ok)
}

func TestInvitationCodeUsable(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		code InvitationCode
		want bool
	}{
		{"valid", InvitationCode{RemainingUsage: 3, ValidUntil: now.Add(time.Hour)}, true},
		{"exhausted", InvitationCode{RemainingUsage: 0, ValidUntil: now.Add(time.Hour)}, false},
		{"expired", InvitationCode{RemainingUsage: 3, ValidUntil: now.Add(-time.Hour)}, false},
		{"expires exactly now", InvitationCode{RemainingUsage: 1, ValidUntil: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Usable(now))
		})
	}
}

func TestAuthStateClone(t *testing.T) {
	state := AuthState{
		Status: AuthStatusLoggedIn,
		User:   &AuthenticatedUser{ID: "u1", Name: "Ada", Email: "ada@example.com"},
	}

	clone := state.Clone()
	clone.User.Name = "Grace"

	assert.Equal(t, "Ada", state.User.Name)
	assert.Equal(t, AuthStatusLoggedIn, clone.Status)
}

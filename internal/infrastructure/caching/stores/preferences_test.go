package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-coaching/compass-go/internal/domain/user"
)

func samplePreference() *user.Preference {
	accepted := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	return &user.Preference{
		UserID:                   "user-1",
		Language:                 user.LanguageFrench,
		Sessions:                 []int{5, 3, 1},
		AcceptedTC:               &accepted,
		SensitiveDataRequirement: user.SensitiveDataCompleted,
		AnsweredQuestions:        map[int][]string{5: {"q1", "q2"}},
		ExperimentGroups:         map[int]string{5: "GROUP_2"},
	}
}

func TestPreferencesStoreGetMissesWhenEmpty(t *testing.T) {
	store := NewPreferencesStore(nil)
	assert.Nil(t, store.Get())
}

func TestPreferencesStoreRoundTripPreservesTypedFields(t *testing.T) {
	store := NewPreferencesStore(nil)
	original := samplePreference()
	require.NoError(t, store.Set(original))

	got := store.Get()
	require.NotNil(t, got)
	assert.Equal(t, original.UserID, got.UserID)
	assert.Equal(t, user.LanguageFrench, got.Language)
	assert.Equal(t, []int{5, 3, 1}, got.Sessions)
	require.NotNil(t, got.AcceptedTC)
	assert.True(t, got.AcceptedTC.Equal(*original.AcceptedTC))
	assert.Equal(t, user.SensitiveDataCompleted, got.SensitiveDataRequirement)
	assert.Equal(t, []string{"q1", "q2"}, got.AnsweredQuestions[5])
	assert.Equal(t, "GROUP_2", got.ExperimentGroups[5])
}

func TestPreferencesStoreClonesOnWrite(t *testing.T) {
	store := NewPreferencesStore(nil)
	original := samplePreference()
	require.NoError(t, store.Set(original))

	// Mutating the value the caller handed in must not reach the cache.
	original.Sessions[0] = 99
	original.AnsweredQuestions[5][0] = "poisoned"

	got := store.Get()
	assert.Equal(t, 5, got.Sessions[0])
	assert.Equal(t, "q1", got.AnsweredQuestions[5][0])
}

func TestPreferencesStoreClonesOnRead(t *testing.T) {
	store := NewPreferencesStore(nil)
	require.NoError(t, store.Set(samplePreference()))

	first := store.Get()
	first.Sessions[0] = 99
	first.Language = user.LanguageEnglish

	second := store.Get()
	assert.Equal(t, 5, second.Sessions[0])
	assert.Equal(t, user.LanguageFrench, second.Language)
}

func TestPreferencesStoreGetActiveSessionID(t *testing.T) {
	store := NewPreferencesStore(nil)

	_, ok := store.GetActiveSessionID()
	assert.False(t, ok)

	require.NoError(t, store.Set(samplePreference()))
	id, ok := store.GetActiveSessionID()
	assert.True(t, ok)
	assert.Equal(t, 5, id)
}

func TestPreferencesStoreClear(t *testing.T) {
	store := NewPreferencesStore(nil)
	require.NoError(t, store.Set(samplePreference()))
	store.Clear()

	assert.Nil(t, store.Get())
	assert.True(t, store.LastLoaded().IsZero())
}

func TestPreferencesStoreSetNilClears(t *testing.T) {
	store := NewPreferencesStore(nil)
	require.NoError(t, store.Set(samplePreference()))
	require.NoError(t, store.Set(nil))
	assert.Nil(t, store.Get())
}

func TestAuthStateStoreLifecycle(t *testing.T) {
	store := NewAuthStateStore(nil)

	assert.Equal(t, user.AuthStatusUnknown, store.Snapshot().Status)
	assert.Nil(t, store.CurrentUser())

	store.SetLoggedIn(&user.AuthenticatedUser{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	snapshot := store.Snapshot()
	assert.Equal(t, user.AuthStatusLoggedIn, snapshot.Status)
	require.NotNil(t, snapshot.User)
	assert.Equal(t, "u1", snapshot.User.ID)

	// Mutating a snapshot must not reach the store.
	snapshot.User.Name = "Grace"
	assert.Equal(t, "Ada", store.CurrentUser().Name)

	store.SetLoggedOut()
	assert.Equal(t, user.AuthStatusLoggedOut, store.Snapshot().Status)
	assert.Nil(t, store.CurrentUser())

	store.Reset()
	assert.Equal(t, user.AuthStatusUnknown, store.Snapshot().Status)
}

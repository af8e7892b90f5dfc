package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/user"
)

func seedPreferences(t *testing.T, f *serviceFixture, userID string) *user.Preference {
	t.Helper()
	pref, err := f.preference.CreateDefault(userID)
	require.NoError(t, err)
	return pref
}

func TestGetMissingPreferencesIsPrecondition(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.preference.Get("nobody")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindPrecondition, servicerror.KindOf(err))
}

func TestGetServesFromCacheAfterFirstRead(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	first, err := f.preference.Get("user-1")
	require.NoError(t, err)

	// Remove the backing record; the cache now holds the user, so a second
	// read must still succeed.
	f.prefs.prefs = map[string]*user.Preference{}
	second, err := f.preference.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
}

func TestGetIgnoresCacheHoldingAnotherUser(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")
	seedPreferences(t, f, "user-2")

	_, err := f.preference.Get("user-1")
	require.NoError(t, err)

	pref, err := f.preference.Get("user-2")
	require.NoError(t, err)
	assert.Equal(t, "user-2", pref.UserID)
}

func TestStartSessionPrependsNewHead(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	_, err := f.preference.StartSession("user-1", 101, "GROUP_1")
	require.NoError(t, err)
	pref, err := f.preference.StartSession("user-1", 202, "GROUP_4")
	require.NoError(t, err)

	// Newest session becomes the head; the head is the active session.
	assert.Equal(t, []int{202, 101}, pref.Sessions)
	active, err := f.preference.GetActiveSessionID("user-1")
	require.NoError(t, err)
	assert.Equal(t, 202, active)

	assert.Equal(t, "GROUP_1", pref.ExperimentGroups[101])
	assert.Equal(t, "GROUP_4", pref.ExperimentGroups[202])
}

func TestStartSessionRejectsDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	_, err := f.preference.StartSession("user-1", 101, "GROUP_1")
	require.NoError(t, err)
	_, err = f.preference.StartSession("user-1", 101, "GROUP_2")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestGetActiveSessionIDWithoutSessions(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	_, err := f.preference.GetActiveSessionID("user-1")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindPrecondition, servicerror.KindOf(err))
}

func TestAcceptTermsKeepsOriginalTimestamp(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pref, err := f.preference.AcceptTerms("user-1", first)
	require.NoError(t, err)
	require.NotNil(t, pref.AcceptedTC)
	assert.True(t, pref.AcceptedTC.Equal(first))

	// Accepting again later must not move the stamp.
	pref, err = f.preference.AcceptTerms("user-1", first.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, pref.AcceptedTC.Equal(first))
}

func TestSetLanguageValidatesValue(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	pref, err := f.preference.SetLanguage("user-1", user.LanguageFrench)
	require.NoError(t, err)
	assert.Equal(t, user.LanguageFrench, pref.Language)

	_, err = f.preference.SetLanguage("user-1", user.Language("de"))
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestSetSensitiveDataRequirement(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	pref, err := f.preference.SetSensitiveDataRequirement("user-1", user.SensitiveDataCompleted)
	require.NoError(t, err)
	assert.Equal(t, user.SensitiveDataCompleted, pref.SensitiveDataRequirement)

	stored, err := f.prefs.FindByUserID("user-1")
	require.NoError(t, err)
	assert.Equal(t, user.SensitiveDataCompleted, stored.SensitiveDataRequirement)
}

func TestRecordFeedbackAnswersMergesWithoutDuplicates(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	_, err := f.preference.RecordFeedbackAnswers("user-1", 101, []string{"q1", "q2"})
	require.NoError(t, err)
	pref, err := f.preference.RecordFeedbackAnswers("user-1", 101, []string{"q2", "q3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2", "q3"}, pref.AnsweredQuestions[101])
}

func TestRecordFeedbackAnswersScopedPerSession(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")

	_, err := f.preference.RecordFeedbackAnswers("user-1", 101, []string{"q1"})
	require.NoError(t, err)
	pref, err := f.preference.RecordFeedbackAnswers("user-1", 202, []string{"q1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1"}, pref.AnsweredQuestions[101])
	assert.Equal(t, []string{"q1"}, pref.AnsweredQuestions[202])
}

func TestPersistFailureSurfacesAsRemote(t *testing.T) {
	f := newServiceFixture(t)
	seedPreferences(t, f, "user-1")
	f.prefs.updateErr = assert.AnError

	_, err := f.preference.SetLanguage("user-1", user.LanguageFrench)
	require.Error(t, err)
	assert.Equal(t, servicerror.KindRemote, servicerror.KindOf(err))
}

package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/messaging"
)

func seedAccount(t *testing.T, f *serviceFixture, id, emailAddr, password string, verified bool) *user.Account {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	account := &user.Account{
		ID:            id,
		Name:          "Test User",
		Email:         emailAddr,
		PasswordHash:  string(hashed),
		EmailVerified: verified,
		Provider:      "password",
		CreatedAt:     time.Now().UTC(),
		Changed:       time.Now().UTC(),
	}
	require.NoError(t, f.accounts.Store(account))
	return account
}

func TestLoginSuccess(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "correct horse", true)

	result, err := f.auth.Login("alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "user-1", result.User.ID)

	current := f.cache.AuthState.CurrentUser()
	require.NotNil(t, current)
	assert.Equal(t, "user-1", current.ID)

	events := f.broadcaster.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.EventLoginUser, events[0].Event)
	assert.Equal(t, "user-1", events[0].UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "correct horse", true)

	_, err := f.auth.Login("alice@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
	assert.Empty(t, f.broadcaster.recorded())
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.auth.Login("nobody@example.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestLoginUnverifiedEmailTearsSessionDown(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "correct horse", false)

	_, err := f.auth.Login("alice@example.com", "correct horse")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindPrecondition, servicerror.KindOf(err))

	// Sibling tabs must be told to log out and local state must be cleared.
	events := f.broadcaster.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.EventLogoutUser, events[0].Event)
	assert.Nil(t, f.cache.AuthState.CurrentUser())
	assert.Nil(t, f.cache.Preferences.Get())
}

func TestRegisterCreatesAccountWithDefaults(t *testing.T) {
	f := newServiceFixture(t)
	f.seedInvitation("WELCOME", user.InvitationCodeRegister)

	account, err := f.auth.Register("Bob", "bob@example.com", "long enough password", "WELCOME")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.False(t, account.EmailVerified)
	assert.Equal(t, "password", account.Provider)

	// Default preferences are created as part of registration.
	pref, err := f.prefs.FindByUserID(account.ID)
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, user.LanguageEnglish, pref.Language)
	assert.Empty(t, pref.Sessions)
	assert.Equal(t, user.SensitiveDataRequired, pref.SensitiveDataRequirement)

	// A verification email went out and the code was consumed.
	assert.Equal(t, []string{"bob@example.com"}, f.emails.verifications)
	code, err := f.invitations.FindByCode("WELCOME")
	require.NoError(t, err)
	assert.Equal(t, 4, code.RemainingUsage)
}

func TestRegisterRejectsLoginTypedCode(t *testing.T) {
	f := newServiceFixture(t)
	f.seedInvitation("GUEST", user.InvitationCodeLogin)

	_, err := f.auth.Register("Bob", "bob@example.com", "long enough password", "GUEST")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
	assert.Contains(t, err.Error(), "authorizes LOGIN, not registration")
}

func TestRegisterRejectsExhaustedCode(t *testing.T) {
	f := newServiceFixture(t)
	f.invitations.Store(&user.InvitationCode{
		Code:           "SPENT",
		Type:           user.InvitationCodeRegister,
		RemainingUsage: 0,
		ValidUntil:     time.Now().Add(time.Hour),
	})

	_, err := f.auth.Register("Bob", "bob@example.com", "long enough password", "SPENT")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	f.seedInvitation("WELCOME", user.InvitationCodeRegister)
	seedAccount(t, f, "user-1", "bob@example.com", "pw pw pw pw", true)

	_, err := f.auth.Register("Bob", "bob@example.com", "long enough password", "WELCOME")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestRegisterSurvivesEmailFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.seedInvitation("WELCOME", user.InvitationCodeRegister)
	f.emails.err = assert.AnError

	// The account is committed before the email goes out; a mail failure must
	// not roll registration back.
	account, err := f.auth.Register("Bob", "bob@example.com", "long enough password", "WELCOME")
	require.NoError(t, err)

	stored, err := f.accounts.FindByID(account.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestVerifyEmailRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	f.seedInvitation("WELCOME", user.InvitationCodeRegister)

	account, err := f.auth.Register("Bob", "bob@example.com", "long enough password", "WELCOME")
	require.NoError(t, err)

	// The registration email carries the token as a query parameter.
	token := tokenFromURL(t, f.emails.lastURL)

	require.NoError(t, f.auth.VerifyEmail(token))

	stored, err := f.accounts.FindByID(account.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)

	// Verifying twice is harmless.
	require.NoError(t, f.auth.VerifyEmail(token))
}

func tokenFromURL(t *testing.T, url string) string {
	t.Helper()
	_, token, found := strings.Cut(url, "?token=")
	require.True(t, found, "mail URL %q carries no token", url)
	return token
}

func TestVerifyEmailRejectsGarbageToken(t *testing.T) {
	f := newServiceFixture(t)

	err := f.auth.VerifyEmail("not-a-token")
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestResendVerificationIsSilentForUnknownAddress(t *testing.T) {
	f := newServiceFixture(t)

	// No account means no error and no mail, so the endpoint cannot be used
	// to probe which addresses exist.
	require.NoError(t, f.auth.ResendVerification("stranger@example.com"))
	assert.Empty(t, f.emails.verifications)
}

func TestResendVerificationSkipsVerifiedAccounts(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "pw pw pw pw", true)

	require.NoError(t, f.auth.ResendVerification("alice@example.com"))
	assert.Empty(t, f.emails.verifications)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "old password!", true)

	require.NoError(t, f.auth.RequestPasswordReset("alice@example.com"))
	require.Len(t, f.emails.resets, 1)
	token := tokenFromURL(t, f.emails.lastURL)

	require.NoError(t, f.auth.ResetPassword(token, "brand new password"))

	_, err := f.auth.Login("alice@example.com", "old password!")
	require.Error(t, err)
	result, err := f.auth.Login("alice@example.com", "brand new password")
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
}

func TestPasswordResetTokenCannotVerifyEmail(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "old password!", false)

	require.NoError(t, f.auth.RequestPasswordReset("alice@example.com"))
	token := tokenFromURL(t, f.emails.lastURL)

	// Tokens are purpose-scoped: a reset token must not flip verification.
	err := f.auth.VerifyEmail(token)
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestLogoutBroadcastsAndClears(t *testing.T) {
	f := newServiceFixture(t)
	f.cache.AuthState.SetLoggedIn(&user.AuthenticatedUser{ID: "user-1"})

	f.auth.Logout("user-1")

	assert.Nil(t, f.cache.AuthState.CurrentUser())
	events := f.broadcaster.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.EventLogoutUser, events[0].Event)
}

func TestResolveSessionWithValidToken(t *testing.T) {
	f := newServiceFixture(t)
	seedAccount(t, f, "user-1", "alice@example.com", "correct horse", true)

	result, err := f.auth.Login("alice@example.com", "correct horse")
	require.NoError(t, err)

	resolved := f.auth.ResolveSession(result.Token)
	require.NotNil(t, resolved)
	assert.Equal(t, "user-1", resolved.ID)
}

func TestResolveSessionInvalidTokenLogsOut(t *testing.T) {
	f := newServiceFixture(t)
	f.cache.AuthState.SetLoggedIn(&user.AuthenticatedUser{ID: "user-1"})

	resolved := f.auth.ResolveSession("garbage")
	assert.Nil(t, resolved)
	assert.Nil(t, f.cache.AuthState.CurrentUser())
}

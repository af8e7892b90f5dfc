// Package services provides application-level orchestration services
package services

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/caching/manager"
	"github.com/compass-coaching/compass-go/internal/infrastructure/email"
	"github.com/compass-coaching/compass-go/internal/infrastructure/messaging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
	"github.com/compass-coaching/compass-go/internal/infrastructure/security"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// AuthService handles credential authentication, registration, email
// verification, and the logout fan-out.
type AuthService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	accountRepo user.AccountRepository
	prefService *PreferenceService
	invitations user.InvitationRepository
	emailSvc    email.Service
	cache       *manager.Manager
	broadcaster messaging.Broadcaster
}

// NewAuthService creates a new authentication service
func NewAuthService(
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
	accountRepo user.AccountRepository,
	prefService *PreferenceService,
	invitations user.InvitationRepository,
	emailSvc email.Service,
	cache *manager.Manager,
	broadcaster messaging.Broadcaster,
) *AuthService {
	return &AuthService{
		logger:      logger,
		perfTracker: perfTracker,
		accountRepo: accountRepo,
		prefService: prefService,
		invitations: invitations,
		emailSvc:    emailSvc,
		cache:       cache,
		broadcaster: broadcaster,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token string                  `json:"token"`
	User  *user.AuthenticatedUser `json:"user"`
}

// verificationToken is the payload sealed inside the AES-encrypted email
// verification and password reset links.
type verificationToken struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expiresAt"`
}

const (
	purposeVerifyEmail   = "verify_email"
	purposePasswordReset = "password_reset"
)

// Login validates credentials and establishes a session. An account with an
// unverified email is immediately deauthenticated again: the broadcaster tells
// sibling tabs to log out, and the caller receives a typed precondition error
// rather than a token.
func (a *AuthService) Login(emailAddr, password string) (*AuthResult, error) {
	marker := a.perfTracker.StartOperation("auth_login")
	defer marker.Complete()

	account, err := a.accountRepo.FindByEmail(emailAddr)
	if err != nil {
		a.logger.Auth().Error("Database error during login", "error", err.Error())
		return nil, servicerror.New("AuthService", "Login", servicerror.KindRemote, "account lookup failed", err)
	}
	if account == nil {
		return nil, servicerror.New("AuthService", "Login", servicerror.KindValidation, "invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		a.logger.LogAuthOperation("login", account.ID, false, map[string]any{"reason": "password mismatch"})
		return nil, servicerror.New("AuthService", "Login", servicerror.KindValidation, "invalid credentials", nil)
	}

	if !account.EmailVerified {
		// The provider authenticated the account, so any session it opened
		// must be torn down before the error propagates.
		a.cache.ClearUserState()
		a.broadcaster.Broadcast(account.ID, messaging.EventLogoutUser)
		a.logger.LogAuthOperation("login", account.ID, false, map[string]any{"reason": "email not verified"})
		return nil, servicerror.New("AuthService", "Login", servicerror.KindPrecondition, "email not verified", nil)
	}

	authenticated := &user.AuthenticatedUser{
		ID:    account.ID,
		Name:  account.Name,
		Email: account.Email,
	}
	token, err := security.GenerateSessionToken(authenticated, config.JWTSecret, config.TokenLifetime)
	if err != nil {
		return nil, servicerror.New("AuthService", "Login", servicerror.KindRemote, "token generation failed", err)
	}

	a.cache.AuthState.SetLoggedIn(authenticated)
	a.broadcaster.Broadcast(account.ID, messaging.EventLoginUser)
	a.logger.LogAuthOperation("login", account.ID, true, nil)

	marker.SetSuccess(true)
	return &AuthResult{Token: token, User: authenticated}, nil
}

// Register creates a new account gated by a typed invitation code. The code
// must authorize registration; a code issued for another purpose is rejected
// with a descriptive error instead of a generic one.
func (a *AuthService) Register(name, emailAddr, password, invitationCode string) (*user.Account, error) {
	marker := a.perfTracker.StartOperation("auth_register")
	defer marker.Complete()

	invitation, err := a.invitations.FindByCode(invitationCode)
	if err != nil {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindRemote, "invitation lookup failed", err)
	}
	if invitation == nil {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindValidation, "unknown invitation code", nil)
	}
	if invitation.Type != user.InvitationCodeRegister {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindValidation,
			fmt.Sprintf("invitation code authorizes %s, not registration", invitation.Type), nil)
	}
	if !invitation.Usable(time.Now()) {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindValidation, "invitation code expired or exhausted", nil)
	}

	existing, err := a.accountRepo.FindByEmail(emailAddr)
	if err != nil {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindRemote, "account lookup failed", err)
	}
	if existing != nil {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindValidation, "email already registered", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Auth().Error("Password hashing failed", "error", err.Error())
		return nil, servicerror.New("AuthService", "Register", servicerror.KindRemote, "password hashing failed", err)
	}

	now := time.Now().UTC()
	account := &user.Account{
		ID:            security.GenerateULID(),
		Name:          name,
		Email:         emailAddr,
		PasswordHash:  string(hashed),
		EmailVerified: false,
		Provider:      "password",
		CreatedAt:     now,
		Changed:       now,
	}
	if err := a.accountRepo.Store(account); err != nil {
		return nil, servicerror.New("AuthService", "Register", servicerror.KindRemote, "account creation failed", err)
	}

	if err := a.invitations.Redeem(invitationCode); err != nil {
		a.logger.Auth().Error("Invitation redeem failed after account creation", "error", err.Error(), "code", invitationCode)
		return nil, servicerror.New("AuthService", "Register", servicerror.KindRemote, "invitation redeem failed", err)
	}

	if _, err := a.prefService.CreateDefault(account.ID); err != nil {
		return nil, err
	}

	if err := a.sendVerificationEmail(account); err != nil {
		// Account creation already committed; the user can request a resend.
		a.logger.Email().Error("Verification email failed during registration", "error", err.Error(), "userId", account.ID)
	}

	a.logger.LogAuthOperation("register", account.ID, true, nil)
	marker.SetSuccess(true)
	return account, nil
}

// VerifyEmail unseals a verification token and marks the account verified.
func (a *AuthService) VerifyEmail(token string) error {
	payload, err := a.openToken(token, purposeVerifyEmail)
	if err != nil {
		return err
	}

	account, err := a.accountRepo.FindByID(payload.UserID)
	if err != nil {
		return servicerror.New("AuthService", "VerifyEmail", servicerror.KindRemote, "account lookup failed", err)
	}
	if account == nil || account.Email != payload.Email {
		return servicerror.New("AuthService", "VerifyEmail", servicerror.KindValidation, "verification token does not match any account", nil)
	}
	if account.EmailVerified {
		return nil
	}

	account.EmailVerified = true
	account.Changed = time.Now().UTC()
	if err := a.accountRepo.Update(account); err != nil {
		return servicerror.New("AuthService", "VerifyEmail", servicerror.KindRemote, "account update failed", err)
	}

	a.logger.LogAuthOperation("verify_email", account.ID, true, nil)
	return nil
}

// ResendVerification issues a fresh verification email for an unverified
// account. Unknown addresses succeed silently so the endpoint does not leak
// which emails exist.
func (a *AuthService) ResendVerification(emailAddr string) error {
	account, err := a.accountRepo.FindByEmail(emailAddr)
	if err != nil {
		return servicerror.New("AuthService", "ResendVerification", servicerror.KindRemote, "account lookup failed", err)
	}
	if account == nil || account.EmailVerified {
		return nil
	}
	return a.sendVerificationEmail(account)
}

// RequestPasswordReset emails a reset link. Unknown addresses succeed
// silently for the same reason as ResendVerification.
func (a *AuthService) RequestPasswordReset(emailAddr string) error {
	account, err := a.accountRepo.FindByEmail(emailAddr)
	if err != nil {
		return servicerror.New("AuthService", "RequestPasswordReset", servicerror.KindRemote, "account lookup failed", err)
	}
	if account == nil {
		return nil
	}

	token, err := a.sealToken(account, purposePasswordReset, 24*time.Hour)
	if err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", config.VerificationBaseURL, token)
	if err := a.emailSvc.SendPasswordResetEmail(account.Email, account.Name, resetURL); err != nil {
		return servicerror.New("AuthService", "RequestPasswordReset", servicerror.KindRemote, "reset email failed", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash.
func (a *AuthService) ResetPassword(token, newPassword string) error {
	payload, err := a.openToken(token, purposePasswordReset)
	if err != nil {
		return err
	}

	account, err := a.accountRepo.FindByID(payload.UserID)
	if err != nil {
		return servicerror.New("AuthService", "ResetPassword", servicerror.KindRemote, "account lookup failed", err)
	}
	if account == nil || account.Email != payload.Email {
		return servicerror.New("AuthService", "ResetPassword", servicerror.KindValidation, "reset token does not match any account", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return servicerror.New("AuthService", "ResetPassword", servicerror.KindRemote, "password hashing failed", err)
	}

	account.PasswordHash = string(hashed)
	account.Changed = time.Now().UTC()
	if err := a.accountRepo.Update(account); err != nil {
		return servicerror.New("AuthService", "ResetPassword", servicerror.KindRemote, "account update failed", err)
	}

	a.logger.LogAuthOperation("reset_password", account.ID, true, nil)
	return nil
}

// Logout clears the cached user state and tells sibling tabs to do the same.
func (a *AuthService) Logout(userID string) {
	a.cache.ClearUserState()
	a.broadcaster.Broadcast(userID, messaging.EventLogoutUser)
	a.logger.LogAuthOperation("logout", userID, true, nil)
}

// ResolveSession validates a bearer token and refreshes the auth state store.
// An invalid token resolves to logged-out, never to an error.
func (a *AuthService) ResolveSession(token string) *user.AuthenticatedUser {
	if token == "" {
		a.cache.AuthState.SetLoggedOut()
		return nil
	}

	claims, err := security.ValidateJWT(token, config.JWTSecret)
	if err != nil {
		a.cache.AuthState.SetLoggedOut()
		return nil
	}

	authenticated := security.GetUserFromClaims(claims)
	if authenticated == nil {
		a.cache.AuthState.SetLoggedOut()
		return nil
	}

	a.cache.AuthState.SetLoggedIn(authenticated)
	return authenticated
}

func (a *AuthService) sendVerificationEmail(account *user.Account) error {
	token, err := a.sealToken(account, purposeVerifyEmail, config.VerificationTokenExpiry)
	if err != nil {
		return err
	}

	verificationURL := fmt.Sprintf("%s/verify-email?token=%s", config.VerificationBaseURL, token)
	if err := a.emailSvc.SendVerificationEmail(account.Email, account.Name, verificationURL); err != nil {
		return servicerror.New("AuthService", "sendVerificationEmail", servicerror.KindRemote, "verification email failed", err)
	}

	a.logger.Email().Info("Verification email sent", "userId", account.ID)
	return nil
}

func (a *AuthService) sealToken(account *user.Account, purpose string, lifetime time.Duration) (string, error) {
	payload := verificationToken{
		UserID:    account.ID,
		Email:     account.Email,
		Purpose:   purpose,
		ExpiresAt: time.Now().UTC().Add(lifetime),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", servicerror.New("AuthService", "sealToken", servicerror.KindRemote, "token encoding failed", err)
	}
	sealed, err := security.Encrypt(string(encoded), config.AESKey)
	if err != nil {
		return "", servicerror.New("AuthService", "sealToken", servicerror.KindRemote, "token encryption failed", err)
	}
	return sealed, nil
}

func (a *AuthService) openToken(token, wantPurpose string) (*verificationToken, error) {
	decrypted, err := security.Decrypt(token, config.AESKey)
	if err != nil {
		return nil, servicerror.New("AuthService", "openToken", servicerror.KindValidation, "malformed token", err)
	}

	var payload verificationToken
	if err := json.Unmarshal([]byte(decrypted), &payload); err != nil {
		return nil, servicerror.New("AuthService", "openToken", servicerror.KindValidation, "malformed token payload", err)
	}
	if payload.Purpose != wantPurpose {
		return nil, servicerror.New("AuthService", "openToken", servicerror.KindValidation, "token purpose mismatch", nil)
	}
	if time.Now().After(payload.ExpiresAt) {
		return nil, servicerror.New("AuthService", "openToken", servicerror.KindValidation, "token expired", nil)
	}
	return &payload, nil
}

// Package user defines the entities and repository interfaces for accounts,
// user preferences, and invitation codes. Repositories abstract persistence
// so the application layer stays decoupled from the database.
package user

import "time"

// Account represents a registered user with email/password credentials.
type Account struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Never serialize password hash
	EmailVerified bool      `json:"emailVerified"`
	Provider      string    `json:"provider"` // "password" or a federated provider name
	CreatedAt     time.Time `json:"createdAt"`
	Changed       time.Time `json:"changed"`
}

// AuthenticatedUser is the identity published into the auth state store after
// any provider succeeds. Derived from Account; not persisted directly.
type AuthenticatedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Language is the user's UI language preference.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

// SensitiveDataRequirement says whether the user must still complete the
// sensitive personal data step.
type SensitiveDataRequirement string

const (
	SensitiveDataRequired    SensitiveDataRequirement = "REQUIRED"
	SensitiveDataNotRequired SensitiveDataRequirement = "NOT_REQUIRED"
	SensitiveDataCompleted   SensitiveDataRequirement = "COMPLETED"
)

// Preference is the per-user record fetched on login and cached in the
// preferences store. Sessions is ordered: the head is the active session.
type Preference struct {
	UserID                   string                   `json:"userId"`
	Language                 Language                 `json:"language"`
	Sessions                 []int                    `json:"sessions"`
	AcceptedTC               *time.Time               `json:"acceptedTc,omitempty"`
	SensitiveDataRequirement SensitiveDataRequirement `json:"sensitivePersonalDataRequirement"`
	AnsweredQuestions        map[int][]string         `json:"userFeedbackAnsweredQuestions,omitempty"`
	ExperimentGroups         map[int]string           `json:"experimentGroups,omitempty"`
}

// ActiveSessionID returns the head of the session list. The active session is
// always the first entry, never the most recently created.
func (p *Preference) ActiveSessionID() (int, bool) {
	if p == nil || len(p.Sessions) == 0 {
		return 0, false
	}
	return p.Sessions[0], true
}

// InvitationCodeType scopes what an invitation code authorizes.
type InvitationCodeType string

const (
	InvitationCodeLogin    InvitationCodeType = "LOGIN"
	InvitationCodeRegister InvitationCodeType = "REGISTER"
)

// InvitationCode gates registration (and anonymous login) behind pre-issued
// codes with a usage budget.
type InvitationCode struct {
	Code           string             `json:"code"`
	Type           InvitationCodeType `json:"type"`
	RemainingUsage int                `json:"remainingUsage"`
	ValidUntil     time.Time          `json:"validUntil"`
}

// Usable reports whether the code can still be redeemed at the given time.
func (c *InvitationCode) Usable(now time.Time) bool {
	return c.RemainingUsage > 0 && now.Before(c.ValidUntil)
}

// AccountRepository defines the operations for persisting Account entities.
type AccountRepository interface {
	FindByID(id string) (*Account, error)
	FindByEmail(email string) (*Account, error)
	Store(account *Account) error
	Update(account *Account) error
}

// PreferenceRepository defines the operations for persisting Preference
// entities.
type PreferenceRepository interface {
	FindByUserID(userID string) (*Preference, error)
	Store(pref *Preference) error
	Update(pref *Preference) error
}

// InvitationRepository defines the operations for invitation codes.
type InvitationRepository interface {
	FindByCode(code string) (*InvitationCode, error)
	Redeem(code string) error
	Store(invitation *InvitationCode) error
}

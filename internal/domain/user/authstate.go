package user

// AuthStatus is the tri-state login status. It starts unknown until the
// first session check resolves, so consumers can distinguish "not logged in"
// from "not yet determined".
type AuthStatus string

const (
	AuthStatusUnknown   AuthStatus = "UNKNOWN"
	AuthStatusLoggedIn  AuthStatus = "LOGGED_IN"
	AuthStatusLoggedOut AuthStatus = "LOGGED_OUT"
)

// AuthState pairs the login status with the identity it resolved to. User is
// nil unless Status is AuthStatusLoggedIn.
type AuthState struct {
	Status AuthStatus         `json:"status"`
	User   *AuthenticatedUser `json:"user,omitempty"`
}

// Clone returns an independent copy so store consumers cannot mutate the
// cached state.
func (s AuthState) Clone() AuthState {
	out := AuthState{Status: s.Status}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

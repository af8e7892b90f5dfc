// Package servicerror provides the typed error carried across service
// boundaries. Lower-level services attach the operation context (service
// name, function, failure kind); the HTTP layer maps the kind to a status
// code and a generic user-facing message; raw errors never reach users.
package servicerror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for propagation policy.
type Kind string

const (
	// KindPrecondition: a required input is missing (no active session,
	// no authenticated user). Fatal to the operation, no retry scheduling.
	KindPrecondition Kind = "PRECONDITION"
	// KindRemote: a network or downstream service failure. The caller may
	// retry the same action.
	KindRemote Kind = "REMOTE"
	// KindConfiguration: a logic or configuration defect (unmapped flow
	// transition, inconsistent auth state). The affected flow halts.
	KindConfiguration Kind = "CONFIGURATION"
	// KindValidation: client-side input validation; surfaced inline before
	// any network call.
	KindValidation Kind = "VALIDATION"
)

// Error carries the operation context of a failure.
type Error struct {
	Service  string
	Function string
	Kind     Kind
	Reason   string
	Err      error
}

// New creates a service error with operation context.
func New(service, function string, kind Kind, reason string, err error) *Error {
	return &Error{Service: service, Function: function, Kind: kind, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Service, e.Function, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Function, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err when it is a *Error, or KindRemote as the
// conservative default for unclassified failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindRemote
}

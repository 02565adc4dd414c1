// Package guard decides whether a navigation to a view is permitted given the
// current session and the view's role requirements. It is a pure function of
// session state and route metadata: no network I/O, no token refresh.
package guard

import (
	"github.com/chamapesa/go-chama-client/users"
)

// Decision is the outcome of a guard check.
type Decision int

const (
	// Allow renders the requested view.
	Allow Decision = iota
	// RedirectLogin sends the visitor to the login view, remembering where
	// they were headed.
	RedirectLogin
	// RedirectUnauthorized sends an authenticated but under-privileged user to
	// the unauthorized view.
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	}
	return "unknown"
}

// Outcome carries the decision plus the location to return to after login.
type Outcome struct {
	Decision Decision
	// ReturnTo is set only for RedirectLogin: the originally requested
	// location, so a successful login can resume the navigation.
	ReturnTo string
}

// SessionState is the read-only slice of the session manager the guard
// consults.
type SessionState interface {
	CurrentUser() *users.User
}

// Check gates a navigation to location. An empty requiredRoles set admits any
// authenticated user. Token validity is deliberately not consulted here; an
// expired token surfaces through the API client's refresh protocol instead.
func Check(session SessionState, location string, requiredRoles ...users.Role) Outcome {
	user := session.CurrentUser()
	if user == nil {
		return Outcome{Decision: RedirectLogin, ReturnTo: location}
	}
	if !user.HasRole(requiredRoles...) {
		return Outcome{Decision: RedirectUnauthorized}
	}
	return Outcome{Decision: Allow}
}

package etuition

import "github.com/Dipteskundu/eTuitionBd-sub000/idp"

// Status is the session resolution state.
type Status string

const (
	// StatusUnresolved is the initial state before the identity provider has
	// reported anything.
	StatusUnresolved Status = "unresolved"

	// StatusResolving means a principal was observed and the token/role
	// resolution is in flight.
	StatusResolving Status = "resolving"

	// StatusResolved means the session carries a principal and a role.
	StatusResolved Status = "resolved"

	// StatusAnonymous means the provider reports no signed-in user.
	StatusAnonymous Status = "anonymous"
)

// Session is the application's merged view of principal, role, token and
// resolution status.
//
// Invariants, maintained by Reduce:
//   - Role is non-empty iff Status == StatusResolved.
//   - Token is non-empty only while Principal is non-nil.
type Session struct {
	Principal *idp.Principal
	Role      Role
	Token     string
	Status    Status
}

// Anonymous reports whether the session represents a signed-out user.
func (s Session) Anonymous() bool { return s.Status == StatusAnonymous }

// Resolved reports whether the session carries an authoritative (or
// fallback) role.
func (s Session) Resolved() bool { return s.Status == StatusResolved }

// Pending reports whether resolution has not completed yet. Guards must not
// render protected content while Pending.
func (s Session) Pending() bool {
	return s.Status == StatusUnresolved || s.Status == StatusResolving
}

// Event is a session state transition input. All session mutations flow
// through Reduce so the transitions stay testable in isolation.
type Event interface{ isSessionEvent() }

// EvPrincipalObserved fires when the provider reports a signed-in principal.
type EvPrincipalObserved struct{ Principal *idp.Principal }

// EvPrincipalCleared fires when the provider reports no principal.
type EvPrincipalCleared struct{}

// EvTokenFetched fires when a fresh bearer token was obtained.
type EvTokenFetched struct{ Token string }

// EvRoleResolved fires when the backend role lookup succeeded.
type EvRoleResolved struct{ Role Role }

// EvRoleLookupFailed fires when the backend role lookup failed or timed out.
// The session still resolves, with the fallback role.
type EvRoleLookupFailed struct{}

// EvSignedOut fires on explicit logout, without waiting for the provider's
// own change event.
type EvSignedOut struct{}

func (EvPrincipalObserved) isSessionEvent() {}
func (EvPrincipalCleared) isSessionEvent()  {}
func (EvTokenFetched) isSessionEvent()      {}
func (EvRoleResolved) isSessionEvent()      {}
func (EvRoleLookupFailed) isSessionEvent()  {}
func (EvSignedOut) isSessionEvent()         {}

// Reduce applies an event to the session and returns the next session.
// It is a pure function; the SessionStore is its only writer at runtime.
func Reduce(s Session, ev Event) Session {
	switch ev := ev.(type) {
	case EvPrincipalObserved:
		return Session{Principal: ev.Principal, Status: StatusResolving}
	case EvPrincipalCleared, EvSignedOut:
		return Session{Status: StatusAnonymous}
	case EvTokenFetched:
		if s.Principal == nil {
			return s
		}
		s.Token = ev.Token
		return s
	case EvRoleResolved:
		if s.Status != StatusResolving {
			return s
		}
		s.Role = ev.Role
		s.Status = StatusResolved
		return s
	case EvRoleLookupFailed:
		if s.Status != StatusResolving {
			return s
		}
		s.Role = FallbackRole
		s.Status = StatusResolved
		return s
	}
	return s
}

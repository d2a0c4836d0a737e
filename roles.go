package etuition

import "fmt"

// Role is an application access class assigned by the eTuitionBd backend.
// The client treats the backend as authoritative and never infers a role
// from local data beyond the one-time fallback on a failed lookup.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// FallbackRole is assigned when the authoritative role lookup cannot be
// completed. Fail-open by product choice: a lookup outage degrades the user
// to student-level access instead of locking them out.
const FallbackRole = RoleStudent

// AllRoles lists every role the backend may assign.
var AllRoles = []Role{RoleStudent, RoleTutor, RoleAdmin}

// ParseRole validates a backend-supplied role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTutor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// LandingRoute returns the role's own default landing route. Role-mismatch
// redirects go here, never to a generic error page.
func (r Role) LandingRoute() string {
	switch r {
	case RoleTutor:
		return "/dashboard/tutor"
	case RoleAdmin:
		return "/dashboard/admin"
	default:
		return "/dashboard/student"
	}
}

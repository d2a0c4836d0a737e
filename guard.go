package etuition

import (
	"net/http"
	"path"
	"strings"
)

// Action is the outcome of a guard decision.
type Action int

const (
	// ActionAllow renders the guarded content.
	ActionAllow Action = iota

	// ActionWait renders a loading placeholder. Nothing else may render
	// while resolution is pending, or guarded content would flash before a
	// redirect lands.
	ActionWait

	// ActionRedirect sends the visitor to Decision.Target, replacing the
	// current history entry so Back does not loop into the guarded page.
	ActionRedirect
)

// Decision is a guard verdict. Redirects are normal control flow here, never
// errors.
type Decision struct {
	Action Action
	Target string
}

// Rule maps a route pattern to the roles allowed on it. Patterns are matched
// with path.Match semantics; a trailing "*" also matches any deeper path
// ("/dashboard/tutor*" covers "/dashboard/tutor/earnings"). An empty role
// list means any authenticated user.
type Rule struct {
	Pattern string
	Roles   []Role
}

// Policy is the authorization table consulted by the one route guard. All
// route allow-lists live here so the policy stays auditable in one place.
type Policy struct {
	// LoginPath is the login entry point anonymous visitors are sent to.
	// Defaults to "/login".
	LoginPath string

	// Rules are checked in order; the first matching rule decides.
	// Unmatched paths are public.
	Rules []Rule
}

// DefaultPolicy is the eTuitionBd route table.
func DefaultPolicy() *Policy {
	return &Policy{
		LoginPath: "/login",
		Rules: []Rule{
			{Pattern: "/dashboard/student*", Roles: []Role{RoleStudent}},
			{Pattern: "/dashboard/tutor*", Roles: []Role{RoleTutor}},
			{Pattern: "/dashboard/admin*", Roles: []Role{RoleAdmin}},
			{Pattern: "/dashboard*"}, // any authenticated user
		},
	}
}

// Decide gates a route against the current session. It is a pure function of
// its inputs and performs no I/O.
func (p *Policy) Decide(s Session, routePath string) Decision {
	rule, matched := p.match(routePath)
	if !matched {
		return Decision{Action: ActionAllow}
	}

	if s.Pending() {
		return Decision{Action: ActionWait}
	}
	if s.Anonymous() {
		return Decision{Action: ActionRedirect, Target: p.loginPath()}
	}

	if len(rule.Roles) == 0 || containsRole(rule.Roles, s.Role) {
		return Decision{Action: ActionAllow}
	}

	// Wrong role: send the user to their own landing route, not an error
	// page.
	return Decision{Action: ActionRedirect, Target: s.Role.LandingRoute()}
}

func (p *Policy) match(routePath string) (Rule, bool) {
	for _, rule := range p.Rules {
		if matchPattern(rule.Pattern, routePath) {
			return rule, true
		}
	}
	return Rule{}, false
}

func (p *Policy) loginPath() string {
	if p.LoginPath != "" {
		return p.LoginPath
	}
	return "/login"
}

func matchPattern(pattern, routePath string) bool {
	if ok, err := path.Match(pattern, routePath); err == nil && ok {
		return true
	}
	// path.Match stops at separators; let a trailing "*" cover subtrees too.
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(routePath, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

func containsRole(roles []Role, r Role) bool {
	for _, role := range roles {
		if role == r {
			return true
		}
	}
	return false
}

const loadingPage = `<!DOCTYPE html>
<html>
<head><title>eTuitionBd</title><meta http-equiv="refresh" content="1"></head>
<body><p>Checking authentication...</p></body>
</html>`

// Middleware returns an HTTP middleware enforcing the policy against the
// session snapshot returned by current. Pending sessions get a self-refreshing
// loading page; the guarded handler is only reached on ActionAllow.
func (p *Policy) Middleware(current func() Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch d := p.Decide(current(), r.URL.Path); d.Action {
			case ActionWait:
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(loadingPage))
			case ActionRedirect:
				http.Redirect(w, r, d.Target, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

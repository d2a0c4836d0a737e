// Package web is a small HTTP shell over the session kit: login, register and
// logout routes, the Google sign-in flow, and guarded dashboard routes. It is
// the wiring the demo binary serves; real frontends talk to the same
// SessionStore directly.
package web

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	etuition "github.com/Dipteskundu/eTuitionBd-sub000"
	"github.com/Dipteskundu/eTuitionBd-sub000/idp"
	"github.com/Dipteskundu/eTuitionBd-sub000/oauth2x"
)

const flashKey = "flash"

// AdoptFunc installs an OAuth-established provider session (e.g.
// rest.Provider.AdoptSession) so the principal stream fires.
type AdoptFunc func(p *idp.Principal, token *oauth2.Token)

// Shell serves the auth routes and guarded pages.
type Shell struct {
	store    *etuition.SessionStore
	policy   *etuition.Policy
	sessions *scs.SessionManager
	google   *oauth2x.GoogleFlow
	logger   *slog.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the shell's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGoogle mounts the Google sign-in flow under /auth/google. adopt
// receives the verified principal.
func WithGoogle(clientID, clientSecret, callbackURL string, adopt AdoptFunc) Option {
	return func(s *Shell) {
		s.google = oauth2x.NewGoogleFlow(clientID, clientSecret, callbackURL,
			func(p *idp.Principal, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
				adopt(p, token)
				if err := s.store.CompleteProviderLogin(r.Context(), p); err != nil {
					s.logger.Warn("provider login completion failed", "error", err)
				}
				http.Redirect(w, r, "/dashboard", http.StatusFound)
			})
	}
}

// New creates a Shell over the given store and policy.
func New(store *etuition.SessionStore, policy *etuition.Policy, opts ...Option) *Shell {
	s := &Shell{
		store:    store,
		policy:   policy,
		logger:   slog.Default(),
		sessions: scs.New(),
	}
	s.sessions.Lifetime = 24 * time.Hour
	s.sessions.Cookie.HttpOnly = true
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the shell's root handler.
func (s *Shell) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/login", s.showLogin).Methods(http.MethodGet)
	r.HandleFunc("/login", s.doLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", s.showRegister).Methods(http.MethodGet)
	r.HandleFunc("/register", s.doRegister).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.doLogout).Methods(http.MethodGet, http.MethodPost)

	if s.google != nil {
		r.PathPrefix("/auth/google").Handler(
			http.StripPrefix("/auth/google", s.google.Handler()))
	}

	guard := s.policy.Middleware(s.store.Current)
	r.PathPrefix("/dashboard").Handler(guard(http.HandlerFunc(s.showDashboard)))
	r.HandleFunc("/", s.showHome)

	return s.sessions.LoadAndSave(r)
}

func (s *Shell) doLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	email := r.FormValue("email")
	password := r.FormValue("password")

	if err := s.store.Login(r.Context(), email, password); err != nil {
		// Identity errors are presented, never swallowed.
		s.flash(r.Context(), loginErrorMessage(err))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Shell) doRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	req := etuition.RegisterRequest{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Role:     etuition.Role(r.FormValue("role")),
		Phone:    r.FormValue("phone"),
		PhotoURL: r.FormValue("photoURL"),
	}

	if err := s.store.Register(r.Context(), req); err != nil {
		s.flash(r.Context(), registerErrorMessage(err))
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Shell) doLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Logout(r.Context()); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Shell) showHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>eTuitionBd</title></head>
<body>
<h1>eTuitionBd</h1>
<p><a href="/login">Login</a> | <a href="/register">Register</a> | <a href="/dashboard">Dashboard</a></p>
</body>
</html>`)
}

func (s *Shell) showLogin(w http.ResponseWriter, r *http.Request) {
	googleLink := ""
	if s.google != nil {
		googleLink = `<p><a href="/auth/google">Sign in with Google</a></p>`
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Login - eTuitionBd</title></head>
<body>
<h1>Login</h1>%s
<form method="POST" action="/login">
	<label>Email: <input type="email" name="email" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Login</button>
</form>%s
</body>
</html>`, s.flashBanner(r.Context()), googleLink)
}

func (s *Shell) showRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Register - eTuitionBd</title></head>
<body>
<h1>Register</h1>%s
<form method="POST" action="/register">
	<label>Name: <input type="text" name="name" required></label>
	<label>Email: <input type="email" name="email" required></label>
	<label>Password: <input type="password" name="password" required minlength="8"></label>
	<label>Role:
		<select name="role">
			<option value="student">Student</option>
			<option value="tutor">Tutor</option>
		</select>
	</label>
	<label>Phone: <input type="tel" name="phone"></label>
	<button type="submit">Register</button>
</form>
</body>
</html>`, s.flashBanner(r.Context()))
}

func (s *Shell) showDashboard(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Current()
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Dashboard - eTuitionBd</title></head>
<body>
<h1>Dashboard</h1>
<p>Signed in as %s (%s)</p>
<p><a href="/logout">Logout</a></p>
</body>
</html>`, html.EscapeString(sess.Principal.Email), html.EscapeString(string(sess.Role)))
}

func (s *Shell) flash(ctx context.Context, msg string) {
	s.sessions.Put(ctx, flashKey, msg)
}

func (s *Shell) flashBanner(ctx context.Context) string {
	msg := s.sessions.PopString(ctx, flashKey)
	if msg == "" {
		return ""
	}
	return fmt.Sprintf(`<p class="banner">%s</p>`, html.EscapeString(msg))
}

func loginErrorMessage(err error) string {
	switch idp.CodeOf(err) {
	case idp.ErrCodeInvalidCredential:
		return "Invalid email or password"
	case idp.ErrCodeRateLimited:
		return "Too many attempts, please try again later"
	case idp.ErrCodeNetwork:
		return "Could not reach the sign-in service"
	default:
		return "Login failed, please try again"
	}
}

func registerErrorMessage(err error) string {
	if re := etuition.AsRegistrationError(err); re != nil {
		var fe *etuition.FieldError
		switch {
		case re.Stage == etuition.StageValidation && asFieldError(re.Cause, &fe):
			return fe.Message
		case idp.CodeOf(re.Cause) == idp.ErrCodeEmailExists:
			return "An account with this email already exists"
		case re.Stage == etuition.StageBackend:
			return "Account created but profile setup failed; please sign in"
		}
	}
	return "Registration failed, please try again"
}

func asFieldError(err error, target **etuition.FieldError) bool {
	fe, ok := err.(*etuition.FieldError)
	if ok {
		*target = fe
	}
	return ok
}

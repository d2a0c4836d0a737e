package etuition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dipteskundu/eTuitionBd-sub000/backend"
	"github.com/Dipteskundu/eTuitionBd-sub000/idp"
	"github.com/Dipteskundu/eTuitionBd-sub000/stores"
)

// DefaultRoleTimeout bounds the backend role lookup. On timeout the session
// resolves with the fallback role, same as any other lookup failure.
const DefaultRoleTimeout = 8 * time.Second

// BackendSync is the slice of the backend client the session store uses.
// *backend.Client satisfies it.
type BackendSync interface {
	UpsertUser(ctx context.Context, req backend.UpsertRequest) error
	FetchRole(ctx context.Context, token string) (string, error)
}

// Teardown releases a store's provider subscription and cancels in-flight
// resolutions. Must be invoked on application shutdown.
type Teardown func()

// SessionStore is the single source of truth for who is using the
// application and what their role is. Construct exactly one per application,
// call Initialize once, and invoke the returned Teardown on shutdown.
type SessionStore struct {
	provider    idp.Provider
	sync        BackendSync
	tokens      stores.TokenStore
	roles       *backend.RoleCache
	logger      *slog.Logger
	roleTimeout time.Duration

	mu          sync.Mutex
	session     Session
	gen         uint64 // bumped on every principal transition; fences stale resolutions
	initialized bool
	unsubscribe idp.Unsubscribe
	rootCtx     context.Context
	cancel      context.CancelFunc

	nextListener int
	listeners    map[int]func(Session)
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithLogger sets the observability sink for resolution failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRoleTimeout overrides the role lookup timeout.
func WithRoleTimeout(d time.Duration) StoreOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.roleTimeout = d
		}
	}
}

// WithRoleCache routes role lookups through cache. Entries are invalidated on
// sign-out, so a later sign-in always re-resolves against the backend.
func WithRoleCache(cache *backend.RoleCache) StoreOption {
	return func(s *SessionStore) {
		s.roles = cache
	}
}

// NewSessionStore creates a SessionStore. The provider emits principal
// changes, sync talks to the eTuitionBd backend, and tokens is the durable
// slot for the persisted bearer token.
func NewSessionStore(provider idp.Provider, sync BackendSync, tokens stores.TokenStore, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		provider:    provider,
		sync:        sync,
		tokens:      tokens,
		logger:      slog.Default(),
		roleTimeout: DefaultRoleTimeout,
		session:     Session{Status: StatusUnresolved},
		listeners:   make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize subscribes to the identity provider's principal stream. It must
// be called exactly once per store; a second call is a caller error. The
// returned Teardown unsubscribes and cancels in-flight resolutions.
func (s *SessionStore) Initialize() (Teardown, error) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil, fmt.Errorf("session store already initialized")
	}
	s.initialized = true
	s.rootCtx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	unsub := s.provider.OnPrincipalChanged(s.onPrincipalObserved)

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		cancel := s.cancel
		unsub := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		if cancel != nil {
			cancel()
		}
	}, nil
}

// Current returns a snapshot of the session.
func (s *SessionStore) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// OnChange registers a listener invoked after every session transition.
// Returns an unsubscribe func.
func (s *SessionStore) OnChange(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Token returns the session token if resolution produced one, falling back to
// the persisted token so page loads can attach an Authorization header before
// async resolution completes. A persisted token that is already expired is
// not worth attaching and is skipped.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	token := s.session.Token
	s.mu.Unlock()
	if token != "" {
		return token
	}
	persisted, err := s.tokens.Load()
	if err != nil {
		s.logger.Warn("failed to load persisted token", "error", err)
		return ""
	}
	if TokenStale(persisted) {
		return ""
	}
	return persisted
}

// Register creates an identity provider account and synchronously upserts the
// backend user record with the chosen role. The provider account is NOT
// rolled back when the upsert fails; the next resolution cycle will assign it
// the fallback role. Session resolution happens asynchronously via the
// provider's own change event, not this call — callers must not assume the
// session is resolved when Register returns.
func (s *SessionStore) Register(ctx context.Context, req RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return &RegistrationError{Stage: StageValidation, Cause: err}
	}

	principal, err := s.provider.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		return &RegistrationError{Stage: StageIdentity, Cause: err}
	}

	upsert := backend.UpsertRequest{
		Name:     req.Name,
		Email:    req.Email,
		Role:     string(req.Role),
		Phone:    req.Phone,
		PhotoURL: req.PhotoURL,
	}
	if err := s.sync.UpsertUser(ctx, upsert); err != nil {
		// Known consistency gap: the provider account exists but the backend
		// record does not. Until the user record is repaired, resolution will
		// fall back to the default role regardless of the requested one.
		s.logger.Error("backend upsert failed after account creation; provider account left in place",
			"uid", principal.UID, "email", req.Email, "requested_role", req.Role, "error", err)
		return &RegistrationError{Stage: StageBackend, AccountCreated: true, Cause: err}
	}
	return nil
}

// Login authenticates against the identity provider. The last-login backend
// ping is fire-and-forget: its failure never fails Login. Session resolution
// follows asynchronously via the principal stream.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	if _, err := s.provider.SignIn(ctx, email, password); err != nil {
		return err
	}

	s.mu.Lock()
	root := s.rootCtx
	s.mu.Unlock()
	if root == nil {
		root = context.Background()
	}

	go func() {
		pingCtx, cancelPing := context.WithTimeout(root, s.roleTimeout)
		defer cancelPing()
		if err := s.sync.UpsertUser(pingCtx, backend.UpsertRequest{Email: email}); err != nil {
			s.logger.Warn("last-login ping failed", "email", email, "error", err)
		}
	}()
	return nil
}

// LoginWithProvider runs the third-party sign-in flow and upserts a backend
// user with the default role if none exists. The upsert is best effort; the
// provider session is already established when it runs.
func (s *SessionStore) LoginWithProvider(ctx context.Context) error {
	popup, ok := s.provider.(idp.PopupProvider)
	if !ok {
		return fmt.Errorf("identity provider does not support third-party sign-in")
	}

	principal, err := popup.SignInWithPopup(ctx)
	if err != nil {
		return err
	}
	return s.CompleteProviderLogin(ctx, principal)
}

// CompleteProviderLogin finishes a third-party sign-in whose principal was
// established outside the provider interface (the web OAuth callback):
// upserts a backend user with the default role if none exists. Best effort;
// the provider session already stands when this runs.
func (s *SessionStore) CompleteProviderLogin(ctx context.Context, principal *idp.Principal) error {
	upsert := backend.UpsertRequest{
		Name:     principal.DisplayName,
		Email:    principal.Email,
		Role:     string(FallbackRole),
		PhotoURL: principal.PhotoURL,
	}
	if err := s.sync.UpsertUser(ctx, upsert); err != nil {
		s.logger.Warn("backend upsert after provider login failed", "email", principal.Email, "error", err)
	}
	return nil
}

// Logout signs out of the identity provider and clears the persisted token
// and in-memory session synchronously, so guarded routes see the logged-out
// state immediately instead of racing the provider's change event.
// Idempotent: logging out twice is not an error.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.gen++ // discard any in-flight resolution
	principal := s.session.Principal
	s.mu.Unlock()

	if s.roles != nil && principal != nil {
		s.roles.Invalidate(principal.UID)
	}

	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted token", "error", err)
	}
	s.apply(EvSignedOut{})

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("provider sign-out failed", "error", err)
	}
	return nil
}

// onPrincipalObserved is the single reaction point to the provider's
// principal stream.
func (s *SessionStore) onPrincipalObserved(principal *idp.Principal) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.session.Principal
	root := s.rootCtx
	s.mu.Unlock()
	if root == nil {
		root = context.Background()
	}

	if principal == nil {
		if s.roles != nil && prev != nil {
			s.roles.Invalidate(prev.UID)
		}
		if err := s.tokens.Clear(); err != nil {
			s.logger.Warn("failed to clear persisted token", "error", err)
		}
		s.applyIfCurrent(gen, EvPrincipalCleared{})
		return
	}

	s.applyIfCurrent(gen, EvPrincipalObserved{Principal: principal})
	go s.resolve(root, gen, principal)
}

// resolve runs the token fetch and role lookup for one observed principal.
// A resolution begun under generation gen is discarded if a later principal
// transition (or logout) moved the counter.
func (s *SessionStore) resolve(ctx context.Context, gen uint64, principal *idp.Principal) {
	token, err := s.provider.IDToken(ctx, principal)
	if err != nil {
		// Token refresh can fail on revoked sessions; the role lookup below
		// proceeds unauthenticated and takes the fallback path on rejection.
		s.logger.Warn("token refresh failed", "uid", principal.UID, "error", err)
	}
	if token != "" {
		if s.persistIfCurrent(gen, token) {
			s.applyIfCurrent(gen, EvTokenFetched{Token: token})
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.roleTimeout)
	defer cancel()

	var roleStr string
	if s.roles != nil {
		roleStr, err = s.roles.Resolve(lookupCtx, principal.UID, token)
	} else {
		roleStr, err = s.sync.FetchRole(lookupCtx, token)
	}
	if err == nil {
		role, perr := ParseRole(roleStr)
		if perr != nil {
			err = perr
		} else {
			s.applyIfCurrent(gen, EvRoleResolved{Role: role})
			return
		}
	}

	// Fail open: the user stays logged in with the reduced-trust fallback
	// role until the next resolution cycle. Logged, never surfaced.
	s.logger.Error("role lookup failed; resolving with fallback role (fail-open)",
		"uid", principal.UID, "email", principal.Email, "fallback", FallbackRole, "error", err)
	s.applyIfCurrent(gen, EvRoleLookupFailed{})
}

// apply runs an event through the reducer and notifies listeners.
func (s *SessionStore) apply(ev Event) {
	s.mu.Lock()
	s.session = Reduce(s.session, ev)
	snapshot := s.session
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// persistIfCurrent stores the token only while the resolution that fetched it
// is current. Held under the mutex so a Logout (which bumps the generation
// before clearing the slot) can never be overwritten by a superseded
// resolution, leaving a stale token behind.
func (s *SessionStore) persistIfCurrent(gen uint64, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	if err := s.tokens.Store(token); err != nil {
		s.logger.Warn("failed to persist token", "error", err)
	}
	return true
}

// applyIfCurrent applies ev only if the generation counter has not moved
// past gen, discarding stale resolutions from superseded sign-ins.
func (s *SessionStore) applyIfCurrent(gen uint64, ev Event) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale session event", "gen", gen)
		return
	}
	s.session = Reduce(s.session, ev)
	snapshot := s.session
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *SessionStore) snapshotListenersLocked() []func(Session) {
	out := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

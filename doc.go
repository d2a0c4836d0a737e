// Package etuition is the client-side session and authorization kit for the
// eTuitionBd tutoring marketplace.
//
// It turns an anonymous visitor into an authenticated, role-assigned user and
// gates routes on that identity. Identity (accounts, tokens) is owned by an
// external provider; application roles (student, tutor, admin) are owned by
// the eTuitionBd backend. This package merges the two into one Session and
// keeps route authorization in a single policy table.
//
// # Architecture
//
// SessionStore: the single source of truth for the current session. It
// subscribes to the identity provider's principal stream and, on every
// observed principal, fetches a fresh token, persists it, and resolves the
// authoritative role from the backend. All state transitions flow through one
// reducer (Reduce) and are fenced by a generation counter so a stale
// resolution from a superseded sign-in can never clobber the session.
//
// Policy: the declarative route table. One guard consults it and either
// renders, waits for resolution, or redirects - anonymous visitors to the
// login entry, wrong-role visitors to their own dashboard landing route.
//
// Role resolution fails open: when the backend lookup fails or times out, the
// session still resolves with the fallback role (student) so an outage never
// deadlocks the UI. The failure is logged, not surfaced.
//
// # Basic Usage
//
//	provider := rest.New("https://id.etuitionbd.example")
//	sync := backend.New("https://api.etuitionbd.example")
//	tokens, _ := fs.NewTokenStore("", "etuitionbd")
//
//	store := etuition.NewSessionStore(provider, sync, tokens)
//	teardown, err := store.Initialize()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer teardown()
//
//	policy := etuition.DefaultPolicy()
//	guarded := policy.Middleware(store.Current)(dashboardHandler)
//
// Login, Register, LoginWithProvider and Logout drive the provider; the
// session itself resolves asynchronously via the provider's own change
// events. Callers must not assume the session is resolved the moment a login
// call returns.
//
// # Subpackages
//
// idp defines the identity provider surface; idp/rest implements it over
// HTTP and idp/idptest provides an in-memory fake. backend holds the sync
// client for the user-upsert and role-lookup endpoints. stores, stores/fs and
// stores/gorm persist the bearer token across restarts. oauth2x runs the
// third-party sign-in flow. web is a small shell wiring all of it behind
// HTTP routes.
package etuition

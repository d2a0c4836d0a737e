// Package idp abstracts the external identity provider used by the
// eTuitionBd client. The provider owns account lifecycle and token issuance;
// the application only consumes the capability set defined here.
package idp

import "context"

// Principal is the identity provider's representation of an authenticated
// user. It carries no application role; roles are assigned by the eTuitionBd
// backend, never by the provider.
type Principal struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// PrincipalListener receives principal-change notifications. A nil principal
// means the provider reports no signed-in user.
type PrincipalListener func(p *Principal)

// Unsubscribe releases a principal-change subscription.
type Unsubscribe func()

// Provider is the capability set consumed from the identity provider.
// All implementations must be safe for concurrent use.
type Provider interface {
	// CreateAccount registers a new email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (*Principal, error)

	// SignIn authenticates an existing email/password account.
	SignIn(ctx context.Context, email, password string) (*Principal, error)

	// SignOut ends the provider session. Signing out while already signed
	// out is not an error.
	SignOut(ctx context.Context) error

	// OnPrincipalChanged subscribes to the principal stream. The listener is
	// invoked with the current principal immediately on subscription and on
	// every subsequent change.
	OnPrincipalChanged(listener PrincipalListener) Unsubscribe

	// IDToken returns a fresh bearer token for the principal. May fail on
	// revoked or expired provider sessions.
	IDToken(ctx context.Context, p *Principal) (string, error)
}

// PopupProvider is implemented by providers that also support a third-party
// (OAuth popup) sign-in flow. The flow yields an already-verified principal.
type PopupProvider interface {
	Provider

	// SignInWithPopup runs the provider's third-party sign-in flow.
	SignInWithPopup(ctx context.Context) (*Principal, error)
}

// Package idptest provides an in-memory identity provider for tests and the
// demo shell. Accounts live for the lifetime of the process; passwords are
// bcrypt-hashed the same way a real provider would store them.
package idptest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dipteskundu/eTuitionBd-sub000/idp"
)

type account struct {
	principal    idp.Principal
	passwordHash []byte
}

// Fake is an in-memory idp.Provider. Failures can be scripted per call site
// to exercise the store's error paths.
type Fake struct {
	mu           sync.Mutex
	accounts     map[string]*account // keyed by email
	current      *idp.Principal
	nextListener int
	listeners    map[int]idp.PrincipalListener

	// Scriptable failures. When set, the corresponding call returns the
	// error instead of proceeding.
	CreateAccountErr error
	SignInErr        error
	IDTokenErr       error
	PopupErr         error

	// PopupPrincipal is returned by SignInWithPopup when set.
	PopupPrincipal *idp.Principal

	// TokenForUID overrides the issued token; defaults to "token-<uid>".
	TokenForUID func(uid string) string
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		accounts:  make(map[string]*account),
		listeners: make(map[int]idp.PrincipalListener),
	}
}

// Seed registers an account without signing it in. Panics on bcrypt failure
// since it is only used from tests.
func (f *Fake) Seed(email, password, displayName string) *idp.Principal {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("idptest: hashing password: %v", err))
	}
	acct := &account{
		principal:    idp.Principal{UID: uuid.NewString(), Email: email, DisplayName: displayName},
		passwordHash: hash,
	}
	f.mu.Lock()
	f.accounts[email] = acct
	f.mu.Unlock()
	return &acct.principal
}

func (f *Fake) CreateAccount(ctx context.Context, email, password string) (*idp.Principal, error) {
	if err := f.CreateAccountErr; err != nil {
		return nil, err
	}
	f.mu.Lock()
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return nil, idp.NewError(idp.ErrCodeEmailExists, "email already registered")
	}
	f.mu.Unlock()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	acct := &account{
		principal:    idp.Principal{UID: uuid.NewString(), Email: email},
		passwordHash: hash,
	}

	f.mu.Lock()
	f.accounts[email] = acct
	f.mu.Unlock()

	f.emit(&acct.principal)
	return &acct.principal, nil
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (*idp.Principal, error) {
	if err := f.SignInErr; err != nil {
		return nil, err
	}
	f.mu.Lock()
	acct, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok {
		return nil, idp.NewError(idp.ErrCodeInvalidCredential, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, idp.NewError(idp.ErrCodeInvalidCredential, "invalid credentials")
	}
	f.emit(&acct.principal)
	return &acct.principal, nil
}

func (f *Fake) SignInWithPopup(ctx context.Context) (*idp.Principal, error) {
	if err := f.PopupErr; err != nil {
		return nil, err
	}
	p := f.PopupPrincipal
	if p == nil {
		p = &idp.Principal{UID: uuid.NewString(), Email: "popup@example.com"}
	}
	f.emit(p)
	return p, nil
}

func (f *Fake) SignOut(ctx context.Context) error {
	f.emit(nil)
	return nil
}

func (f *Fake) OnPrincipalChanged(listener idp.PrincipalListener) idp.Unsubscribe {
	f.mu.Lock()
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = listener
	current := f.current
	f.mu.Unlock()

	listener(current)

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *Fake) IDToken(ctx context.Context, p *idp.Principal) (string, error) {
	if err := f.IDTokenErr; err != nil {
		return "", err
	}
	if f.TokenForUID != nil {
		return f.TokenForUID(p.UID), nil
	}
	return "token-" + p.UID, nil
}

// Adopt installs an externally established principal (e.g. an OAuth callback)
// and notifies subscribers, mirroring rest.Provider.AdoptSession.
func (f *Fake) Adopt(p *idp.Principal) {
	f.emit(p)
}

// emit updates the current principal and fans out to subscribers.
func (f *Fake) emit(p *idp.Principal) {
	f.mu.Lock()
	f.current = p
	listeners := make([]idp.PrincipalListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()

	for _, l := range listeners {
		l(p)
	}
}

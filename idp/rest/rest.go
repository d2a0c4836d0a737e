// Package rest implements idp.Provider against an HTTP identity service.
// The service owns accounts and token issuance; this client only drives the
// sign-up/sign-in/token endpoints and mirrors the provider session locally so
// principal-change subscribers see our own transitions.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Dipteskundu/eTuitionBd-sub000/idp"
)

// DefaultTimeout bounds every identity service request.
const DefaultTimeout = 8 * time.Second

// Provider is an HTTP identity provider client.
type Provider struct {
	baseURL    string
	httpClient *http.Client

	signUpPath  string
	signInPath  string
	tokenPath   string
	signOutPath string

	mu           sync.Mutex
	current      *idp.Principal
	refreshToken string
	nextListener int
	listeners    map[int]idp.PrincipalListener
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client (timeouts, TLS config, proxies).
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithPaths overrides the default endpoint paths.
func WithPaths(signUp, signIn, token, signOut string) Option {
	return func(p *Provider) {
		p.signUpPath = signUp
		p.signInPath = signIn
		p.tokenPath = token
		p.signOutPath = signOut
	}
}

// New creates a Provider for the identity service at baseURL.
func New(baseURL string, opts ...Option) *Provider {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}
	p := &Provider{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		signUpPath:  "/v1/accounts/signup",
		signInPath:  "/v1/accounts/signin",
		tokenPath:   "/v1/token",
		signOutPath: "/v1/accounts/signout",
		listeners:   make(map[int]idp.PrincipalListener),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type accountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	PhotoURL     string `json:"photoURL,omitempty"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// CreateAccount registers a new account and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*idp.Principal, error) {
	resp, err := p.postAccount(ctx, p.signUpPath, email, password)
	if err != nil {
		return nil, err
	}
	return p.establish(resp), nil
}

// SignIn authenticates an existing account.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*idp.Principal, error) {
	resp, err := p.postAccount(ctx, p.signInPath, email, password)
	if err != nil {
		return nil, err
	}
	return p.establish(resp), nil
}

// SignOut ends the provider session and notifies subscribers.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	refresh := p.refreshToken
	p.current = nil
	p.refreshToken = ""
	listeners := p.snapshotLocked()
	p.mu.Unlock()

	for _, l := range listeners {
		l(nil)
	}

	// Best effort revocation; local state is already cleared.
	if refresh != "" {
		body, _ := json.Marshal(tokenRequest{GrantType: "revoke", RefreshToken: refresh})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.signOutPath, bytes.NewReader(body))
		if err != nil {
			return nil
		}
		req.Header.Set("Content-Type", "application/json")
		if resp, err := p.httpClient.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	return nil
}

// OnPrincipalChanged subscribes to principal transitions. The listener is
// invoked immediately with the current principal.
func (p *Provider) OnPrincipalChanged(listener idp.PrincipalListener) idp.Unsubscribe {
	p.mu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = listener
	current := p.current
	p.mu.Unlock()

	listener(current)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// IDToken exchanges the stored refresh token for a fresh ID token.
func (p *Provider) IDToken(ctx context.Context, principal *idp.Principal) (string, error) {
	p.mu.Lock()
	refresh := p.refreshToken
	p.mu.Unlock()

	if refresh == "" {
		return "", idp.NewError(idp.ErrCodeTokenRevoked, "no provider session")
	}

	body, err := json.Marshal(tokenRequest{GrantType: "refresh_token", RefreshToken: refresh})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.tokenPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", idp.WrapError(idp.ErrCodeNetwork, "token refresh failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", idp.WrapError(idp.ErrCodeNetwork, "failed to read token response", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("invalid token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", idp.NewError(idp.ErrCodeTokenRevoked, errDesc(tok.Error, tok.ErrorDesc, resp.StatusCode))
	}

	if tok.RefreshToken != "" {
		p.mu.Lock()
		p.refreshToken = tok.RefreshToken
		p.mu.Unlock()
	}
	return tok.IDToken, nil
}

// AdoptSession installs an externally established provider session (e.g. the
// OAuth popup flow) and notifies subscribers.
func (p *Provider) AdoptSession(principal *idp.Principal, refreshToken string) {
	p.mu.Lock()
	p.current = principal
	p.refreshToken = refreshToken
	listeners := p.snapshotLocked()
	p.mu.Unlock()

	for _, l := range listeners {
		l(principal)
	}
}

func (p *Provider) postAccount(ctx context.Context, path, email, password string) (*accountResponse, error) {
	body, err := json.Marshal(accountRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, idp.WrapError(idp.ErrCodeNetwork, "identity service unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, idp.WrapError(idp.ErrCodeNetwork, "failed to read response", err)
	}

	var acct accountResponse
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("invalid response from identity service: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &acct, nil
	case http.StatusConflict:
		return nil, idp.NewError(idp.ErrCodeEmailExists, errDesc(acct.Error, acct.ErrorDesc, resp.StatusCode))
	case http.StatusUnauthorized, http.StatusBadRequest:
		return nil, idp.NewError(idp.ErrCodeInvalidCredential, errDesc(acct.Error, acct.ErrorDesc, resp.StatusCode))
	case http.StatusTooManyRequests:
		return nil, idp.NewError(idp.ErrCodeRateLimited, errDesc(acct.Error, acct.ErrorDesc, resp.StatusCode))
	default:
		return nil, idp.NewError(idp.ErrCodeNetwork, errDesc(acct.Error, acct.ErrorDesc, resp.StatusCode))
	}
}

func (p *Provider) establish(resp *accountResponse) *idp.Principal {
	principal := &idp.Principal{
		UID:         resp.UID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
	}

	p.mu.Lock()
	p.current = principal
	p.refreshToken = resp.RefreshToken
	listeners := p.snapshotLocked()
	p.mu.Unlock()

	for _, l := range listeners {
		l(principal)
	}
	return principal
}

func (p *Provider) snapshotLocked() []idp.PrincipalListener {
	out := make([]idp.PrincipalListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		out = append(out, l)
	}
	return out
}

func errDesc(code, desc string, status int) string {
	if desc != "" {
		return desc
	}
	if code != "" {
		return code
	}
	return fmt.Sprintf("HTTP %d", status)
}

package backend

import "net/http"

// TokenSource supplies the current bearer token, or "" when signed out.
type TokenSource func() string

// AuthTransport wraps an http.RoundTripper to attach Authorization headers.
// The token is read per request so a page-load transport can optimistically
// use the persisted token before session resolution completes.
type AuthTransport struct {
	Base   http.RoundTripper
	Source TokenSource
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := ""
	if t.Source != nil {
		token = t.Source()
	}
	if token != "" {
		// Clone the request to avoid mutating the original
		req2 := req.Clone(req.Context())
		req2.Header.Set("Authorization", "Bearer "+token)
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewAuthTransport creates an AuthTransport reading tokens from source.
func NewAuthTransport(source TokenSource) *AuthTransport {
	return &AuthTransport{Base: http.DefaultTransport, Source: source}
}

// NewStaticAuthTransport creates an AuthTransport with a fixed token.
func NewStaticAuthTransport(token string) *AuthTransport {
	return &AuthTransport{Base: http.DefaultTransport, Source: func() string { return token }}
}

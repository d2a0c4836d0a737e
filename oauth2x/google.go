// Package oauth2x implements the third-party sign-in flow behind
// SessionStore.LoginWithProvider: a Google OAuth redirect/callback pair that
// yields a verified idp.Principal.
package oauth2x

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/Dipteskundu/eTuitionBd-sub000/idp"
)

// HandlePrincipalFunc receives the verified principal and provider token at
// the end of a successful flow. Implementations typically adopt the provider
// session and redirect.
type HandlePrincipalFunc func(p *idp.Principal, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

// GoogleFlow is the Google sign-in flow. Mount Handler under the auth prefix;
// it serves the redirect at "/" and the exchange at "/callback/".
type GoogleFlow struct {
	HandlePrincipal HandlePrincipalFunc

	config oauth2.Config
	mux    *http.ServeMux

	// verifyIDToken is swapped in tests to avoid calling Google.
	verifyIDToken func(ctx context.Context, rawIDToken, audience string) error
}

// NewGoogleFlow creates the flow. Empty arguments fall back to the
// OAUTH2_GOOGLE_* environment variables.
func NewGoogleFlow(clientID, clientSecret, callbackURL string, handlePrincipal HandlePrincipalFunc) *GoogleFlow {
	if clientID == "" {
		clientID = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackURL == "" {
		callbackURL = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	f := &GoogleFlow{
		HandlePrincipal: handlePrincipal,
		mux:             http.NewServeMux(),
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
	f.verifyIDToken = func(ctx context.Context, rawIDToken, audience string) error {
		_, err := idtoken.Validate(ctx, rawIDToken, audience)
		return err
	}
	f.mux.HandleFunc("/", f.handleRedirect)
	f.mux.HandleFunc("/callback/", f.handleCallback)
	return f
}

// Handler returns the flow's HTTP handler.
func (f *GoogleFlow) Handler() http.Handler { return f.mux }

func (f *GoogleFlow) handleRedirect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
	})
	http.Redirect(w, r, f.config.AuthCodeURL(state), http.StatusFound)
}

func (f *GoogleFlow) handleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, _ := r.Cookie("oauthstate")
	if stateCookie == nil || r.FormValue("state") != stateCookie.Value {
		// State mismatch usually means the window was abandoned mid-flow.
		slog.Warn("oauth state mismatch", "have_cookie", stateCookie != nil)
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "oauthstate", Value: "", Path: "/", MaxAge: -1})

	code := r.FormValue("code")
	if code == "" {
		http.Error(w, "sign-in cancelled", http.StatusBadRequest)
		return
	}

	token, err := f.config.Exchange(r.Context(), code)
	if err != nil {
		slog.Warn("oauth code exchange failed", "error", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}

	// Verify the ID token when Google returned one; the userinfo endpoint
	// alone does not prove the token was minted for this client.
	if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
		if err := f.verifyIDToken(r.Context(), raw, f.config.ClientID); err != nil {
			slog.Warn("google id token rejected", "error", err)
			http.Error(w, "sign-in failed", http.StatusUnauthorized)
			return
		}
	}

	principal, err := f.fetchPrincipal(r.Context(), token)
	if err != nil {
		slog.Warn("fetching google userinfo failed", "error", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}

	f.HandlePrincipal(principal, token, w, r)
}

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleUserinfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (f *GoogleFlow) fetchPrincipal(ctx context.Context, token *oauth2.Token) (*idp.Principal, error) {
	client := f.config.Client(ctx, token)
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned HTTP %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid userinfo response: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo response carried no email")
	}

	return &idp.Principal{
		UID:         "google:" + info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
	}, nil
}

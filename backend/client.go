// Package backend talks to the eTuitionBd backend service. The backend is
// the system of record for application roles; this client only drives the
// user-upsert and role-lookup endpoints the session layer depends on.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every backend request. Matches the original client's
// fixed request timeout.
const DefaultTimeout = 8 * time.Second

// UpsertRequest is the body of POST /user. Zero-valued fields are omitted so
// the same endpoint serves full registration, the email-only last-login ping,
// and the OAuth default-role upsert.
type UpsertRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

type roleResponse struct {
	Role string `json:"role"`
}

// SyncError is a failed backend call.
type SyncError struct {
	Op     string // "upsert_user" or "fetch_role"
	Status int    // HTTP status, 0 on transport errors
	Cause  error
}

func (e *SyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend: %s failed: HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("backend: %s failed: %v", e.Op, e.Cause)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// Client is the backend sync client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (TLS config, proxies, custom
// timeouts). The client's timeout applies to every request.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL this client is configured for.
func (c *Client) BaseURL() string { return c.baseURL }

// UpsertUser creates or updates the backend user record via POST /user.
func (c *Client) UpsertUser(ctx context.Context, req UpsertRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &SyncError{Op: "upsert_user", Cause: fmt.Errorf("encoding request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user", bytes.NewReader(body))
	if err != nil {
		return &SyncError{Op: "upsert_user", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &SyncError{Op: "upsert_user", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SyncError{Op: "upsert_user", Status: resp.StatusCode}
	}
	return nil
}

// FetchRole returns the authoritative role for the bearer of token via
// GET /user/role.
func (c *Client) FetchRole(ctx context.Context, token string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/role", nil)
	if err != nil {
		return "", &SyncError{Op: "fetch_role", Cause: err}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &SyncError{Op: "fetch_role", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &SyncError{Op: "fetch_role", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &SyncError{Op: "fetch_role", Status: resp.StatusCode}
	}

	var rr roleResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return "", &SyncError{Op: "fetch_role", Cause: fmt.Errorf("invalid role response: %w", err)}
	}
	if rr.Role == "" {
		return "", &SyncError{Op: "fetch_role", Cause: fmt.Errorf("backend returned empty role")}
	}
	return rr.Role, nil
}

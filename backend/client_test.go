package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestClient_UpsertUser(t *testing.T) {
	var mu sync.Mutex
	var gotBody map[string]any
	var gotPath, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.UpsertUser(context.Background(), UpsertRequest{
		Name:  "Jane",
		Email: "jane@x.com",
		Role:  "tutor",
	})
	if err != nil {
		t.Fatalf("UpsertUser() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/user" {
		t.Errorf("path = %q, want /user", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["email"] != "jane@x.com" || gotBody["role"] != "tutor" {
		t.Errorf("body = %v", gotBody)
	}
	// Zero-valued fields stay off the wire so the email-only ping does not
	// blank out existing profile fields.
	if _, present := gotBody["phone"]; present {
		t.Error("empty phone should be omitted")
	}
}

func TestClient_UpsertUserServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL).UpsertUser(context.Background(), UpsertRequest{Email: "a@x.com"})
	var se *SyncError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SyncError", err)
	}
	if se.Op != "upsert_user" || se.Status != http.StatusInternalServerError {
		t.Errorf("SyncError = %+v", se)
	}
}

func TestClient_FetchRole(t *testing.T) {
	var mu sync.Mutex
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"role": "admin"})
	}))
	defer srv.Close()

	role, err := New(srv.URL).FetchRole(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("FetchRole() error: %v", err)
	}
	if role != "admin" {
		t.Errorf("role = %q, want admin", role)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/user/role" {
		t.Errorf("path = %q, want /user/role", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestClient_FetchRoleFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "empty role in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{})
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL).FetchRole(context.Background(), "tok")
			var se *SyncError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *SyncError", err)
			}
			if se.Op != "fetch_role" || se.Status != tt.wantStatus {
				t.Errorf("SyncError = %+v, want status %d", se, tt.wantStatus)
			}
		})
	}
}

func TestClient_FetchRoleHonorsContext(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := New(srv.URL).FetchRole(ctx, "tok")
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("FetchRole should fail when its context is canceled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FetchRole did not return after cancellation")
	}
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	c := New("http://localhost:5000/some/path")
	if c.BaseURL() != "http://localhost:5000" {
		t.Errorf("BaseURL() = %q, want scheme and host only", c.BaseURL())
	}
}

func TestAuthTransport(t *testing.T) {
	var mu sync.Mutex
	var headers []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		mu.Unlock()
	}))
	defer srv.Close()

	token := "tok-1"
	client := &http.Client{Transport: NewAuthTransport(func() string { return token })}

	if _, err := client.Get(srv.URL); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	token = "" // signed out; no header should be attached
	if _, err := client.Get(srv.URL); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(headers) != 2 || headers[0] != "Bearer tok-1" || headers[1] != "" {
		t.Errorf("headers = %v", headers)
	}
}

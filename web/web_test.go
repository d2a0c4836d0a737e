package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	etuition "github.com/Dipteskundu/eTuitionBd-sub000"
	"github.com/Dipteskundu/eTuitionBd-sub000/backend"
	"github.com/Dipteskundu/eTuitionBd-sub000/idp/idptest"
	"github.com/Dipteskundu/eTuitionBd-sub000/stores"
)

type roleBackend struct {
	role string
}

func (b *roleBackend) UpsertUser(ctx context.Context, req backend.UpsertRequest) error {
	return nil
}

func (b *roleBackend) FetchRole(ctx context.Context, token string) (string, error) {
	return b.role, nil
}

func newTestShell(t *testing.T, fake *idptest.Fake, role string) (*httptest.Server, *http.Client, *etuition.SessionStore) {
	t.Helper()
	store := etuition.NewSessionStore(fake, &roleBackend{role: role}, stores.NewMemoryTokenStore())
	teardown, err := store.Initialize()
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	t.Cleanup(teardown)

	shell := New(store, etuition.DefaultPolicy())
	srv := httptest.NewServer(shell.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return srv, client, store
}

func waitFor(t *testing.T, store *etuition.SessionStore, status etuition.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Current().Status == status {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached %v", status)
}

func TestShell_LoginFailureFlashesBanner(t *testing.T) {
	fake := idptest.NewFake()
	fake.Seed("a@x.com", "password123", "")
	srv, client, _ := newTestShell(t, fake, "student")

	resp, err := client.PostForm(srv.URL+"/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("got %d -> %q, want 302 back to /login", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.Get(srv.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Invalid email or password") {
		t.Error("login page missing the failure banner")
	}

	// Flash is one-shot; the banner must not persist.
	resp, _ = client.Get(srv.URL + "/login")
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.Contains(string(body), "Invalid email or password") {
		t.Error("flash banner should clear after one render")
	}
}

func TestShell_LoginSuccessRedirectsToDashboard(t *testing.T) {
	fake := idptest.NewFake()
	fake.Seed("a@x.com", "password123", "")
	srv, client, store := newTestShell(t, fake, "tutor")

	resp, err := client.PostForm(srv.URL+"/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"password123"},
	})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/dashboard" {
		t.Fatalf("got %d -> %q, want 302 to /dashboard", resp.StatusCode, resp.Header.Get("Location"))
	}

	waitFor(t, store, etuition.StatusResolved)
	resp, err = client.Get(srv.URL + "/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "a@x.com") {
		t.Errorf("dashboard got %d %q", resp.StatusCode, string(body))
	}
}

func TestShell_AnonymousDashboardRedirectsToLogin(t *testing.T) {
	fake := idptest.NewFake()
	srv, client, store := newTestShell(t, fake, "student")
	waitFor(t, store, etuition.StatusAnonymous)

	resp, err := client.Get(srv.URL + "/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Errorf("got %d -> %q, want 302 to /login", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestShell_RoleMismatchRedirectsToOwnDashboard(t *testing.T) {
	fake := idptest.NewFake()
	fake.Seed("t@x.com", "password123", "")
	srv, client, store := newTestShell(t, fake, "tutor")

	resp, _ := client.PostForm(srv.URL+"/login", url.Values{
		"email":    {"t@x.com"},
		"password": {"password123"},
	})
	resp.Body.Close()
	waitFor(t, store, etuition.StatusResolved)

	resp, err := client.Get(srv.URL + "/dashboard/student")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/dashboard/tutor" {
		t.Errorf("got %d -> %q, want 302 to /dashboard/tutor", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestShell_RegisterValidationFailureFlashes(t *testing.T) {
	fake := idptest.NewFake()
	srv, client, _ := newTestShell(t, fake, "student")

	resp, err := client.PostForm(srv.URL+"/register", url.Values{
		"name":     {"Jane"},
		"email":    {"not-an-email"},
		"password": {"pw123456"},
		"role":     {"tutor"},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/register" {
		t.Fatalf("got %d -> %q, want 302 back to /register", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, _ = client.Get(srv.URL + "/register")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Invalid email format") {
		t.Error("register page missing the validation banner")
	}
}

func TestShell_LogoutReturnsHome(t *testing.T) {
	fake := idptest.NewFake()
	fake.Seed("a@x.com", "password123", "")
	srv, client, store := newTestShell(t, fake, "student")

	resp, _ := client.PostForm(srv.URL+"/login", url.Values{
		"email":    {"a@x.com"},
		"password": {"password123"},
	})
	resp.Body.Close()
	waitFor(t, store, etuition.StatusResolved)

	resp, err := client.Get(srv.URL + "/logout")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Errorf("got %d -> %q, want 302 to /", resp.StatusCode, resp.Header.Get("Location"))
	}
	if store.Current().Status != etuition.StatusAnonymous {
		t.Errorf("session status = %v after logout", store.Current().Status)
	}
}

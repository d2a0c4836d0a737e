package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store, err := NewTokenStore(path, "")
	if err != nil {
		t.Fatalf("NewTokenStore() error: %v", err)
	}

	// Missing file means logged out, not an error.
	token, err := store.Load()
	if err != nil || token != "" {
		t.Fatalf("Load() on missing file = %q, %v", token, err)
	}

	if err := store.Store("tok-abc"); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	token, err = store.Load()
	if err != nil || token != "tok-abc" {
		t.Fatalf("Load() = %q, %v, want tok-abc", token, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 0600", perm)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	token, err = store.Load()
	if err != nil || token != "" {
		t.Fatalf("Load() after Clear() = %q, %v", token, err)
	}

	// Clearing an already-clear store is fine.
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear() error: %v", err)
	}
}

func TestTokenStore_OverwriteReplacesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store, _ := NewTokenStore(path, "")

	if err := store.Store("first"); err != nil {
		t.Fatal(err)
	}
	if err := store.Store("second"); err != nil {
		t.Fatal(err)
	}
	token, err := store.Load()
	if err != nil || token != "second" {
		t.Fatalf("Load() = %q, %v, want second", token, err)
	}

	// No leftover temp file from the write-then-rename dance.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	store, _ := NewTokenStore(path, "")
	if _, err := store.Load(); err == nil {
		t.Error("Load() should fail on a corrupt token file")
	}
}

func TestNewTokenStore_DefaultPath(t *testing.T) {
	store, err := NewTokenStore("", "myapp")
	if err != nil {
		t.Fatalf("NewTokenStore() error: %v", err)
	}
	if filepath.Base(store.Path()) != "token.json" {
		t.Errorf("Path() = %q, want a token.json file", store.Path())
	}
	if filepath.Base(filepath.Dir(store.Path())) != "myapp" {
		t.Errorf("Path() = %q, want an app-named directory", store.Path())
	}
}

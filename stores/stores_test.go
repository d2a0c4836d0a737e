package stores

import "testing"

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()

	token, err := store.Load()
	if err != nil || token != "" {
		t.Fatalf("Load() on empty store = %q, %v", token, err)
	}

	if err := store.Store("tok-1"); err != nil {
		t.Fatal(err)
	}
	if token, _ = store.Load(); token != "tok-1" {
		t.Errorf("Load() = %q, want tok-1", token)
	}

	if err := store.Store("tok-2"); err != nil {
		t.Fatal(err)
	}
	if token, _ = store.Load(); token != "tok-2" {
		t.Errorf("Load() = %q, want tok-2", token)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if token, _ = store.Load(); token != "" {
		t.Errorf("Load() after Clear() = %q", token)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("clearing an empty slot errored: %v", err)
	}
}

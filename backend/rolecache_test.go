package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int32
	role  string
	err   error
	gate  chan struct{} // when set, FetchRole blocks until closed
}

func (f *countingFetcher) FetchRole(ctx context.Context, token string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.role, f.err
}

func TestRoleCache_HitAvoidsFetch(t *testing.T) {
	fetcher := &countingFetcher{role: "tutor"}
	cache := NewRoleCache(fetcher, 10, time.Minute)

	for i := 0; i < 3; i++ {
		role, err := cache.Resolve(context.Background(), "u1", "tok")
		if err != nil || role != "tutor" {
			t.Fatalf("Resolve() = %q, %v", role, err)
		}
	}
	if calls := atomic.LoadInt32(&fetcher.calls); calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestRoleCache_FailureNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("backend down")}
	cache := NewRoleCache(fetcher, 10, time.Minute)

	if _, err := cache.Resolve(context.Background(), "u1", "tok"); err == nil {
		t.Fatal("Resolve() should propagate the fetch error")
	}

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.role = "student"
	fetcher.mu.Unlock()

	role, err := cache.Resolve(context.Background(), "u1", "tok")
	if err != nil || role != "student" {
		t.Fatalf("Resolve() after recovery = %q, %v", role, err)
	}
	if calls := atomic.LoadInt32(&fetcher.calls); calls != 2 {
		t.Errorf("fetcher called %d times, want 2 (failure must not be cached)", calls)
	}
}

func TestRoleCache_ConcurrentLookupsDeduplicated(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &countingFetcher{role: "admin", gate: gate}
	cache := NewRoleCache(fetcher, 10, time.Minute)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role, err := cache.Resolve(context.Background(), "u1", "tok")
			if err != nil {
				t.Errorf("Resolve() error: %v", err)
			}
			results[i] = role
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let the goroutines pile onto singleflight
	close(gate)
	wg.Wait()

	for i, role := range results {
		if role != "admin" {
			t.Errorf("result[%d] = %q, want admin", i, role)
		}
	}
	if calls := atomic.LoadInt32(&fetcher.calls); calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestRoleCache_Invalidate(t *testing.T) {
	fetcher := &countingFetcher{role: "tutor"}
	cache := NewRoleCache(fetcher, 10, time.Minute)

	if _, err := cache.Resolve(context.Background(), "u1", "tok"); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate("u1")
	if _, err := cache.Resolve(context.Background(), "u1", "tok"); err != nil {
		t.Fatal(err)
	}
	if calls := atomic.LoadInt32(&fetcher.calls); calls != 2 {
		t.Errorf("fetcher called %d times, want 2 after invalidation", calls)
	}
}

func TestRoleCache_DistinctUIDsFetchedSeparately(t *testing.T) {
	fetcher := &countingFetcher{role: "student"}
	cache := NewRoleCache(fetcher, 10, time.Minute)

	cache.Resolve(context.Background(), "u1", "tok1")
	cache.Resolve(context.Background(), "u2", "tok2")
	if calls := atomic.LoadInt32(&fetcher.calls); calls != 2 {
		t.Errorf("fetcher called %d times, want 2", calls)
	}
}

package backend

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// RoleFetcher resolves a role for a bearer token. *Client implements this.
type RoleFetcher interface {
	FetchRole(ctx context.Context, token string) (string, error)
}

// RoleCache wraps a RoleFetcher with an in-process TTL cache keyed by uid.
// Concurrent lookups for the same uid are deduplicated via singleflight.
// Entries never outlive the process; roles are not cached across sessions —
// the backend stays the source of truth on every sign-in.
type RoleCache struct {
	fetcher RoleFetcher
	cache   *lru.LRU[string, string]
	sf      singleflight.Group
}

// NewRoleCache creates a cache that delegates to fetcher on miss. size bounds
// the number of cached uids; ttl bounds entry lifetime.
func NewRoleCache(fetcher RoleFetcher, size int, ttl time.Duration) *RoleCache {
	if size <= 0 {
		size = 128
	}
	return &RoleCache{
		fetcher: fetcher,
		cache:   lru.NewLRU[string, string](size, nil, ttl),
	}
}

// Resolve returns the cached role for uid, or fetches fresh with token on a
// miss. Failures are not cached; the next call retries the backend.
func (c *RoleCache) Resolve(ctx context.Context, uid, token string) (string, error) {
	if role, ok := c.cache.Get(uid); ok {
		return role, nil
	}

	result, err, _ := c.sf.Do(uid, func() (any, error) {
		// Double-check inside singleflight; a concurrent call may have
		// populated the entry.
		if role, ok := c.cache.Get(uid); ok {
			return role, nil
		}
		role, err := c.fetcher.FetchRole(ctx, token)
		if err != nil {
			return "", err
		}
		c.cache.Add(uid, role)
		return role, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached role for uid. Called on sign-out so a later
// sign-in re-resolves against the backend.
func (c *RoleCache) Invalidate(uid string) {
	c.cache.Remove(uid)
}

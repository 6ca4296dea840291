package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// gocacheNegativeCache implements NegativeCache with patrickmn/go-cache, a
// TTL map with background janitor cleanup. Capacity is not enforced by
// go-cache itself; the negative cache's TTL is deliberately short (shorter
// than L1's) so unbounded growth under sustained 404 traffic is bounded in
// time rather than in count, which tracks a "known absent within the
// current TTL window" contract more closely than a hard eviction would.
type gocacheNegativeCache struct {
	c   *gocache.Cache
	ttl time.Duration
}

// NewNegativeCache builds an L2 negative cache with the given TTL. The
// capacity argument is accepted for interface and config symmetry with the
// object cache, but go-cache does not expose a max-entries eviction path,
// so it is not enforced here — see DESIGN.md.
func NewNegativeCache(_ int, ttl time.Duration) NegativeCache {
	cleanupInterval := ttl
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &gocacheNegativeCache{
		c:   gocache.New(ttl, cleanupInterval),
		ttl: ttl,
	}
}

func (n *gocacheNegativeCache) Contains(code string) bool {
	_, found := n.c.Get(code)
	return found
}

func (n *gocacheNegativeCache) Mark(code string) {
	n.c.Set(code, struct{}{}, n.ttl)
}

func (n *gocacheNegativeCache) Remove(code string) {
	n.c.Delete(code)
}

func (n *gocacheNegativeCache) Clear() {
	n.c.Flush()
}

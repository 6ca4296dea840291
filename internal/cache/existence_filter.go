package cache

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// cuckooExistenceFilter implements ExistenceFilter with a cuckoo filter.
// Cuckoo filters support deletion, but per the composite cache's L0
// invariant (never false-negative, no per-key removal) we never call it —
// the only way entries leave L0 is a full Rebuild.
type cuckooExistenceFilter struct {
	mu     sync.RWMutex
	filter *cuckoo.Filter
}

// NewExistenceFilter constructs an L0 sized for the given expected
// capacity. The false-positive rate is not a parameter: the underlying
// cuckoo filter's rate is a function of its fingerprint size, not
// independently tunable per capacity; Rebuild oversizes capacity instead.
func NewExistenceFilter(capacity uint) ExistenceFilter {
	if capacity == 0 {
		capacity = 10_000
	}
	return &cuckooExistenceFilter{filter: cuckoo.NewFilter(capacity)}
}

func (c *cuckooExistenceFilter) MightContain(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Lookup([]byte(code))
}

func (c *cuckooExistenceFilter) Set(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.InsertUnique([]byte(code))
}

func (c *cuckooExistenceFilter) BulkSet(codes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, code := range codes {
		c.filter.InsertUnique([]byte(code))
	}
}

// Rebuild constructs a brand new filter sized to max(len(codes), floor) +
// slack, populates it fully, then swaps it in under the write lock — so a
// concurrent reader observes either the old or the new filter in its
// entirety, never a partially built one.
func (c *cuckooExistenceFilter) Rebuild(codes []string, _ float64) error {
	const floor = 9_000
	const slack = 1_000

	capacity := uint(len(codes))
	if capacity < floor {
		capacity = floor
	}
	capacity += slack

	next := cuckoo.NewFilter(capacity)
	for _, code := range codes {
		next.InsertUnique([]byte(code))
	}

	c.mu.Lock()
	c.filter = next
	c.mu.Unlock()
	return nil
}

package cache

import (
	"context"

	"github.com/shortlinker/shortlinker/internal/models"
)

// Composite wires the three cache layers behind the single Lookup
// operation the redirect resolver calls. Construction is tagged-variant:
// callers pass already-built L0/L1/L2 implementations rather than
// selecting them through a runtime plugin registry (see REDESIGN FLAGS in
// SPEC_FULL.md) — the three concrete types live in this package and are
// chosen once, in main, from config.
type Composite struct {
	L0 ExistenceFilter
	L1 ObjectCache
	L2 NegativeCache
	M  Metrics
}

// New builds a Composite from already-constructed layers. Pass
// cache.NoopMetrics{} when metrics are disabled.
func New(l0 ExistenceFilter, l1 ObjectCache, l2 NegativeCache, m Metrics) *Composite {
	if m == nil {
		m = NoopMetrics{}
	}
	return &Composite{L0: l0, L1: l1, L2: l2, M: m}
}

// Lookup implements the ordered, short-circuiting lookup protocol:
//  1. L0 says absent -> NegativeHit, no further layers touched.
//  2. L2 contains the code -> NegativeHit.
//  3. L1 has the code -> Found.
//  4. Otherwise -> Miss; the caller must consult storage.
func (c *Composite) Lookup(code string) (LookupOutcome, *models.ShortLink) {
	if !c.L0.MightContain(code) {
		return NegativeHit, nil
	}
	if c.L2.Contains(code) {
		c.M.IncNegativeCacheHit()
		return NegativeHit, nil
	}
	if link, ok := c.L1.Get(code); ok {
		c.M.IncObjectCacheHit()
		return Found, link
	}
	c.M.IncObjectCacheMiss()
	return Miss, nil
}

// WriteBackFound applies the post-storage-hit write-back protocol: the
// record is inserted into L1, and ensured present in L0 (covers links
// created since the last rebuild — set-on-create).
func (c *Composite) WriteBackFound(link *models.ShortLink) {
	c.L1.Insert(link)
	c.L0.Set(link.Code)
	c.L2.Remove(link.Code)
}

// WriteBackAbsent applies the post-storage-miss write-back protocol: the
// code is marked in L2. Reaching here means L0 reported "possibly
// present" but storage disagreed, so the false-positive counter is bumped.
func (c *Composite) WriteBackAbsent(code string) {
	c.L2.Mark(code)
	c.M.IncExistenceFilterFalsePositive()
}

// OnCreate is called by CRUD paths when a new link is inserted into
// storage: it must land in L0 (set-on-create, covering links created since
// the last rebuild) and L1, and must not linger in L2.
func (c *Composite) OnCreate(link *models.ShortLink) {
	c.L0.Set(link.Code)
	c.L1.Insert(link)
	c.L2.Remove(link.Code)
}

// OnDelete is called by CRUD paths when a link is removed from storage.
// L0 has no per-key removal (see ExistenceFilter); the code lingers there
// until the next Rebuild, which is safe — the composite still returns Miss
// or NegativeHit for it, never a stale Found, because L1 is also cleared.
func (c *Composite) OnDelete(code string) {
	c.L1.Remove(code)
	c.L2.Mark(code)
}

// Rebuild implements the reload coordinator's data-reload steps 3-5: a
// fresh L0 built from the full snapshot of known codes, L1 invalidated
// wholesale, L2 cleared wholesale. Rebuild is atomic from L0's perspective
// (ExistenceFilter.Rebuild swaps its internal handle under a write lock);
// L1/L2 going briefly empty causes a cache-miss spike, not incorrect
// results, because L0 never produces false negatives once rebuilt.
func (c *Composite) Rebuild(ctx context.Context, codes []string, fpRate float64) error {
	if err := c.L0.Rebuild(codes, fpRate); err != nil {
		return err
	}
	c.L1.InvalidateAll()
	c.L2.Clear()
	return nil
}

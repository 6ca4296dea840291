package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/shortlinker/shortlinker/internal/models"
)

// lruObjectCache is a capacity-bounded, per-entry-TTL LRU cache of
// ShortLink records. No pack library offers both capacity eviction and
// per-entry TTL over arbitrary struct values (see DESIGN.md), so this is
// a small hand-rolled container/list-backed LRU, the same shape as the
// teacher's sync.Map L1 but with real bounds instead of unbounded growth.
type lruObjectCache struct {
	mu       sync.Mutex
	ll       *list.List
	items    map[string]*list.Element
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type lruEntry struct {
	code      string
	link      models.ShortLink
	expiresAt time.Time
}

// NewObjectCache builds an L1 object cache with the given capacity and
// per-entry TTL.
func NewObjectCache(capacity int, ttl time.Duration) ObjectCache {
	if capacity <= 0 {
		capacity = 50_000
	}
	return &lruObjectCache{
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *lruObjectCache) Get(code string) (*models.ShortLink, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[code]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*lruEntry)
	if c.now().After(entry.expiresAt) {
		c.ll.Remove(el)
		delete(c.items, code)
		return nil, false
	}
	c.ll.MoveToFront(el)
	link := entry.link
	return &link, true
}

func (c *lruObjectCache) Insert(link *models.ShortLink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[link.Code]; ok {
		entry := el.Value.(*lruEntry)
		entry.link = *link
		entry.expiresAt = c.now().Add(c.ttl)
		c.ll.MoveToFront(el)
		return
	}

	entry := &lruEntry{code: link.Code, link: *link, expiresAt: c.now().Add(c.ttl)}
	el := c.ll.PushFront(entry)
	c.items[link.Code] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).code)
		}
	}
}

func (c *lruObjectCache) Remove(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[code]; ok {
		c.ll.Remove(el)
		delete(c.items, code)
	}
}

func (c *lruObjectCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

func (c *lruObjectCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

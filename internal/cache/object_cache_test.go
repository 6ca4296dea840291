package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/models"
)

func TestObjectCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewObjectCache(2, time.Minute).(*lruObjectCache)

	c.Insert(&models.ShortLink{Code: "a", Target: "https://a"})
	c.Insert(&models.ShortLink{Code: "b", Target: "https://b"})
	// touch "a" so "b" becomes the least recently used
	_, _ = c.Get("a")
	c.Insert(&models.ShortLink{Code: "c", Target: "https://c"})

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	assert.True(t, aOK)
	assert.False(t, bOK, "b should have been evicted as least recently used")
	assert.True(t, cOK)
}

func TestObjectCacheExpiresAfterTTL(t *testing.T) {
	c := NewObjectCache(10, time.Minute).(*lruObjectCache)
	fake := time.Now()
	c.now = func() time.Time { return fake }

	c.Insert(&models.ShortLink{Code: "a", Target: "https://a"})
	fake = fake.Add(2 * time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok, "entry should have expired")
}

func TestObjectCacheInvalidateAll(t *testing.T) {
	c := NewObjectCache(10, time.Minute).(*lruObjectCache)
	c.Insert(&models.ShortLink{Code: "a", Target: "https://a"})
	c.Insert(&models.ShortLink{Code: "b", Target: "https://b"})
	require.Equal(t, 2, c.Len())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

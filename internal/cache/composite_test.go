package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/models"
)

func newTestComposite() *Composite {
	l0 := NewExistenceFilter(1000)
	l1 := NewObjectCache(10, time.Minute)
	l2 := NewNegativeCache(10, time.Minute)
	return New(l0, l1, l2, NoopMetrics{})
}

func TestCompositeLookupNegativeHitWhenUnknown(t *testing.T) {
	c := newTestComposite()
	outcome, link := c.Lookup("nope")
	assert.Equal(t, NegativeHit, outcome)
	assert.Nil(t, link)
}

func TestCompositeOnCreateThenLookupFound(t *testing.T) {
	c := newTestComposite()
	link := &models.ShortLink{Code: "abc123", Target: "https://example.com"}
	c.OnCreate(link)

	outcome, got := c.Lookup("abc123")
	require.Equal(t, Found, outcome)
	assert.Equal(t, link.Target, got.Target)
}

func TestCompositeWriteBackAbsentThenNegativeHit(t *testing.T) {
	c := newTestComposite()
	c.L0.Set("ghost")
	outcome, _ := c.Lookup("ghost")
	require.Equal(t, Miss, outcome, "L1/L2 empty, L0 says maybe present")

	c.WriteBackAbsent("ghost")
	outcome, link := c.Lookup("ghost")
	assert.Equal(t, NegativeHit, outcome)
	assert.Nil(t, link)
}

func TestCompositeOnDeleteClearsL1ButLeavesL0(t *testing.T) {
	c := newTestComposite()
	link := &models.ShortLink{Code: "abc123", Target: "https://example.com"}
	c.OnCreate(link)
	c.OnDelete("abc123")

	outcome, got := c.Lookup("abc123")
	assert.NotEqual(t, Found, outcome)
	assert.Nil(t, got)
}

func TestCompositeRebuildReplacesL0Snapshot(t *testing.T) {
	c := newTestComposite()
	require.NoError(t, c.Rebuild(context.Background(), []string{"alive1", "alive2"}, 0.001))

	assert.True(t, c.L0.MightContain("alive1"))
	assert.True(t, c.L0.MightContain("alive2"))
}

func TestWriteBackFoundPopulatesL1AndClearsL2(t *testing.T) {
	c := newTestComposite()
	c.L2.Mark("abc123")
	link := &models.ShortLink{Code: "abc123", Target: "https://example.com"}
	c.WriteBackFound(link)

	assert.False(t, c.L2.Contains("abc123"))
	got, ok := c.L1.Get("abc123")
	require.True(t, ok)
	assert.Equal(t, link.Target, got.Target)
}

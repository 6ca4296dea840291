package redirect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/password"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// fakeGateway embeds the Gateway interface (nil) and overrides only Get,
// the one method Resolve calls; any other call panics loudly rather than
// silently returning a zero value.
type fakeGateway struct {
	storage.Gateway
	link *models.ShortLink
	err  error
}

func (f *fakeGateway) Get(ctx context.Context, code string) (*models.ShortLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

func newComposite() *cache.Composite {
	return cache.New(
		cache.NewExistenceFilter(1000),
		cache.NewObjectCache(100, time.Minute),
		cache.NewNegativeCache(100, time.Minute),
		cache.NoopMetrics{},
	)
}

func TestResolveCacheHitRedirects(t *testing.T) {
	c := newComposite()
	link := &models.ShortLink{Code: "abc123", Target: "https://example.com"}
	c.OnCreate(link)

	r := New(c, &fakeGateway{}, 0, nil)
	result := r.Resolve(context.Background(), "abc123", "")

	assert.Equal(t, OutcomeRedirect, result.Outcome)
	assert.Equal(t, "https://example.com", result.Link.Target)
}

func TestResolveStorageFallbackOnMiss(t *testing.T) {
	c := newComposite()
	c.L0.Set("abc123") // force a Miss so the storage fallback runs
	link := &models.ShortLink{Code: "abc123", Target: "https://example.com"}
	r := New(c, &fakeGateway{link: link}, 0, nil)

	result := r.Resolve(context.Background(), "abc123", "")
	require.Equal(t, OutcomeRedirect, result.Outcome)

	// second call should be served from the cache's write-back, not storage
	outcome, cached := c.Lookup("abc123")
	assert.Equal(t, cache.Found, outcome)
	assert.Equal(t, link.Target, cached.Target)
}

func TestResolveNotFoundWritesBackAbsent(t *testing.T) {
	c := newComposite()
	c.L0.Set("ghost") // force a Miss instead of an immediate NegativeHit
	r := New(c, &fakeGateway{err: errs.ErrNotFound}, 0, nil)

	result := r.Resolve(context.Background(), "ghost", "")
	assert.Equal(t, OutcomeNotFound, result.Outcome)

	outcome, _ := c.Lookup("ghost")
	assert.Equal(t, cache.NegativeHit, outcome)
}

func TestResolveExpiredLinkIsGone(t *testing.T) {
	c := newComposite()
	past := time.Now().Add(-time.Hour)
	link := &models.ShortLink{Code: "old", Target: "https://example.com", ExpiresAt: &past}
	c.OnCreate(link)

	r := New(c, &fakeGateway{}, 0, nil)
	result := r.Resolve(context.Background(), "old", "")
	assert.Equal(t, OutcomeGone, result.Outcome)
}

func TestResolvePasswordRequiredWithoutSupplied(t *testing.T) {
	c := newComposite()
	hashed, err := password.ProcessNew("secret")
	require.NoError(t, err)
	link := &models.ShortLink{Code: "locked", Target: "https://example.com", Password: hashed}
	c.OnCreate(link)

	r := New(c, &fakeGateway{}, 0, nil)
	result := r.Resolve(context.Background(), "locked", "")
	assert.Equal(t, OutcomePasswordRequired, result.Outcome)
}

func TestResolvePasswordMismatch(t *testing.T) {
	c := newComposite()
	hashed, err := password.ProcessNew("secret")
	require.NoError(t, err)
	link := &models.ShortLink{Code: "locked", Target: "https://example.com", Password: hashed}
	c.OnCreate(link)

	r := New(c, &fakeGateway{}, 0, nil)
	result := r.Resolve(context.Background(), "locked", "wrong")
	assert.Equal(t, OutcomePasswordRequired, result.Outcome)
}

func TestResolvePasswordCorrectRedirects(t *testing.T) {
	c := newComposite()
	hashed, err := password.ProcessNew("secret")
	require.NoError(t, err)
	link := &models.ShortLink{Code: "locked", Target: "https://example.com", Password: hashed}
	c.OnCreate(link)

	r := New(c, &fakeGateway{}, 0, nil)
	result := r.Resolve(context.Background(), "locked", "secret")
	assert.Equal(t, OutcomeRedirect, result.Outcome)
}

package reload

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/storage"
	"github.com/shortlinker/shortlinker/internal/system/eventbus"
)

// fakeGateway embeds the Gateway interface (nil) and overrides only the
// methods a reload actually calls: LoadAllCodes and ListConfig.
type fakeGateway struct {
	storage.Gateway
	codes      []string
	codesErr   error
	config     []models.ConfigEntry
	configErr  error

	blockUntil chan struct{} // if non-nil, LoadAllCodes waits on it
}

func (f *fakeGateway) LoadAllCodes(ctx context.Context) ([]string, error) {
	if f.blockUntil != nil {
		<-f.blockUntil
	}
	if f.codesErr != nil {
		return nil, f.codesErr
	}
	return f.codes, nil
}

func (f *fakeGateway) ListConfig(ctx context.Context) ([]models.ConfigEntry, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}
	return f.config, nil
}

func newTestCache() *cache.Composite {
	return cache.New(
		cache.NewExistenceFilter(1000),
		cache.NewObjectCache(10, time.Minute),
		cache.NewNegativeCache(10, time.Minute),
		cache.NoopMetrics{},
	)
}

func TestReloadDataRebuildsCacheAndReportsCount(t *testing.T) {
	c := newTestCache()
	gw := &fakeGateway{codes: []string{"a", "b", "c"}}
	co := New(c, gw, 0.001, nil, nil)

	result, err := co.Reload(context.Background(), TargetData)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CodesLoaded)
	assert.True(t, c.L0.MightContain("a"))
}

func TestReloadConfigSwapsRuntimeConfig(t *testing.T) {
	gw := &fakeGateway{config: []models.ConfigEntry{{Key: "rate_limit", Value: "100"}}}
	co := New(newTestCache(), gw, 0, nil, nil)

	before := co.Config()
	_, ok := before.Get("rate_limit")
	assert.False(t, ok)

	_, err := co.Reload(context.Background(), TargetConfig)
	require.NoError(t, err)

	after := co.Config()
	v, ok := after.Get("rate_limit")
	require.True(t, ok)
	assert.Equal(t, "100", v)
}

func TestReloadAllDoesBoth(t *testing.T) {
	gw := &fakeGateway{
		codes:  []string{"x"},
		config: []models.ConfigEntry{{Key: "k", Value: "v"}},
	}
	co := New(newTestCache(), gw, 0, nil, nil)

	result, err := co.Reload(context.Background(), TargetAll)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CodesLoaded)
	v, ok := co.Config().Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestReloadRejectsConcurrentCall(t *testing.T) {
	block := make(chan struct{})
	gw := &fakeGateway{codes: []string{"a"}, blockUntil: block}
	co := New(newTestCache(), gw, 0, nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = co.Reload(context.Background(), TargetData)
	}()

	// give the goroutine time to set inFlight before we try a second reload
	time.Sleep(20 * time.Millisecond)
	_, err := co.Reload(context.Background(), TargetData)
	assert.ErrorIs(t, err, errs.ErrAlreadyReloading)

	close(block)
	wg.Wait()
}

func TestReloadPropagatesStorageError(t *testing.T) {
	gw := &fakeGateway{codesErr: assert.AnError}
	co := New(newTestCache(), gw, 0, nil, nil)

	_, err := co.Reload(context.Background(), TargetData)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestReloadPublishesEventOnBus(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(Topic)
	defer bus.Unsubscribe(Topic, sub)

	gw := &fakeGateway{codes: []string{"a"}}
	co := New(newTestCache(), gw, 0, bus, nil)

	_, err := co.Reload(context.Background(), TargetData)
	require.NoError(t, err)

	select {
	case payload := <-sub:
		assert.Contains(t, string(payload), `"Success":true`)
	case <-time.After(time.Second):
		t.Fatal("expected a reload event on the bus")
	}
}

func TestConfigGetOnNilRuntimeConfig(t *testing.T) {
	var rc *RuntimeConfig
	_, ok := rc.Get("anything")
	assert.False(t, ok)
}

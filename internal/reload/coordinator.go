// Package reload implements the single-flight data/config reload that
// rebuilds the composite cache (and, for config, the hot-reloadable
// runtime settings) while the server keeps serving from the cache's old
// generation until the rebuild completes.
package reload

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/storage"
	"github.com/shortlinker/shortlinker/internal/system/eventbus"
)

// Topic is the eventbus topic reload Events are published on.
const Topic = "reload"

// RuntimeConfig is the hot-reloadable subset of configuration sourced from
// the system_config table, as opposed to the boot-time viper config which
// requires a process restart to change.
type RuntimeConfig struct {
	Entries map[string]string
}

// Get returns a config value and whether it was present.
func (c *RuntimeConfig) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.Entries[key]
	return v, ok
}

// Coordinator owns the single-flight reload mutex, the live composite
// cache, and the atomically-swapped RuntimeConfig pointer.
type Coordinator struct {
	cache   *cache.Composite
	store   storage.Gateway
	fpRate  float64
	bus     *eventbus.Bus
	log     *zap.Logger

	mu          sync.Mutex
	inFlight    bool
	runtimeCfg  atomic.Pointer[RuntimeConfig]
}

// New builds a Coordinator. fpRate is the existence filter's target false
// positive rate, passed through to cache.Composite.Rebuild.
func New(c *cache.Composite, store storage.Gateway, fpRate float64, bus *eventbus.Bus, log *zap.Logger) *Coordinator {
	if fpRate <= 0 {
		fpRate = 0.001
	}
	if log == nil {
		log = zap.NewNop()
	}
	co := &Coordinator{cache: c, store: store, fpRate: fpRate, bus: bus, log: log}
	co.runtimeCfg.Store(&RuntimeConfig{Entries: map[string]string{}})
	return co
}

// Config returns the current RuntimeConfig snapshot. Safe for concurrent
// use; never blocks on a reload in flight.
func (co *Coordinator) Config() *RuntimeConfig {
	return co.runtimeCfg.Load()
}

// Reload runs the requested reload. A reload already in flight causes this
// call to return ErrAlreadyReloading immediately rather than block or
// coalesce with it.
func (co *Coordinator) Reload(ctx context.Context, target Target) (Result, error) {
	co.mu.Lock()
	if co.inFlight {
		co.mu.Unlock()
		return Result{}, errs.ErrAlreadyReloading
	}
	co.inFlight = true
	co.mu.Unlock()

	defer func() {
		co.mu.Lock()
		co.inFlight = false
		co.mu.Unlock()
	}()

	start := time.Now()
	result, err := co.runReload(ctx, target)
	result.Duration = time.Since(start)

	event := Event{Target: target, Success: err == nil, At: start, Duration: result.Duration}
	if err != nil {
		event.Err = err.Error()
		co.log.Error("reload failed", zap.Stringer("target", target), zap.Error(err))
	} else {
		co.log.Info("reload completed", zap.Stringer("target", target), zap.Duration("took", result.Duration))
	}
	co.publish(event)

	return result, err
}

func (co *Coordinator) runReload(ctx context.Context, target Target) (Result, error) {
	var result Result
	result.Target = target

	if target == TargetConfig || target == TargetAll {
		entries, err := co.store.ListConfig(ctx)
		if err != nil {
			return result, err
		}
		next := &RuntimeConfig{Entries: make(map[string]string, len(entries))}
		for _, e := range entries {
			if e.RequiresRestart {
				result.RestartRequired = true
				continue
			}
			next.Entries[e.Key] = e.Value
		}
		co.runtimeCfg.Store(next)
	}

	if target == TargetData || target == TargetAll {
		codes, err := co.store.LoadAllCodes(ctx)
		if err != nil {
			return result, err
		}
		if err := co.cache.Rebuild(ctx, codes, co.fpRate); err != nil {
			return result, err
		}
		result.CodesLoaded = len(codes)
	}

	return result, nil
}

func (co *Coordinator) publish(event Event) {
	if co.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	co.bus.Publish(Topic, payload)
}

package clicks

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/metrics"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/storage"
	"github.com/shortlinker/shortlinker/internal/system/eventbus"
)

// Aggregator owns the single in-process aggregation buffer. Its
// AcceptorCount goroutines all drain the same Ingress channel and append
// into one mutex-guarded buffer rather than each keeping a private
// batch: concurrency is preserved on the acceptor side, but aggregation
// state and its flush decision are singular.
type Aggregator struct {
	ingress       *Ingress
	store         storage.Gateway
	geo           GeoLocator
	bus           *eventbus.Bus
	acceptorCount int
	batchSize     int
	flushInterval time.Duration
	log           *zap.Logger

	mu          sync.Mutex
	details     []models.ClickDetail
	deltas      map[string]int64
	failures    int
	nextAttempt time.Time

	flushCh chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
}

// maxFlushBackoff caps the exponential back-off applied after a flush
// failure so a long storage outage doesn't stall retries for hours.
const maxFlushBackoff = 5 * time.Minute

// Config controls the aggregator's batching policy.
type Config struct {
	AcceptorCount int
	BatchSize     int
	FlushInterval time.Duration
}

// NewAggregator builds an Aggregator. A zero Config field falls back to
// the default constants (10 acceptors, batch size 100, 5s flush
// interval).
func NewAggregator(ingress *Ingress, store storage.Gateway, geo GeoLocator, bus *eventbus.Bus, cfg Config, log *zap.Logger) *Aggregator {
	if cfg.AcceptorCount <= 0 {
		cfg.AcceptorCount = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if geo == nil {
		geo = NoopLocator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		ingress:       ingress,
		store:         store,
		geo:           geo,
		bus:           bus,
		acceptorCount: cfg.AcceptorCount,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		log:           log,
		deltas:        make(map[string]int64),
		flushCh:       make(chan struct{}, 1),
		doneCh:        make(chan struct{}),
	}
}

// Run starts the acceptor pool and the flush timer, blocking until ctx is
// cancelled. On return, a final flush drains whatever remains buffered.
func (a *Aggregator) Run(ctx context.Context) {
	for i := 0; i < a.acceptorCount; i++ {
		a.wg.Add(1)
		go a.acceptLoop(ctx)
	}

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			a.flush(context.Background(), true)
			close(a.doneCh)
			return
		case <-ticker.C:
			a.flush(ctx, false)
		case <-a.flushCh:
			a.flush(ctx, false)
		}
	}
}

// Done reports when Run has finished its final flush and returned.
func (a *Aggregator) Done() <-chan struct{} { return a.doneCh }

// Flush requests an out-of-band flush (used by absorb when the buffer
// reaches batchSize, and by tests). Shutdown does not call it: cancelling
// Run's context triggers the final flush.
func (a *Aggregator) Flush() {
	select {
	case a.flushCh <- struct{}{}:
	default:
	}
}

func (a *Aggregator) acceptLoop(ctx context.Context) {
	defer a.wg.Done()
	ch := a.ingress.channel()
	for {
		select {
		case <-ctx.Done():
			return
		case detail, ok := <-ch:
			if !ok {
				return
			}
			a.absorb(ctx, detail)
		}
	}
}

// absorb enriches one detail with geo data (if missing) and appends it to
// the shared buffer, triggering a size-based flush if the threshold is
// crossed.
func (a *Aggregator) absorb(ctx context.Context, detail models.ClickDetail) {
	if detail.Country == "" && detail.IP != "" {
		if loc, err := a.geo.Locate(ctx, detail.IP); err == nil {
			detail.Country, detail.City = loc.Country, loc.City
		}
	}
	if detail.Source == "" {
		detail.Source = deriveSource(detail.Referrer)
	}

	a.mu.Lock()
	a.details = append(a.details, detail)
	a.deltas[detail.Code]++
	size := len(a.details)
	metrics.SetClicksBufferEntries(size)
	a.mu.Unlock()

	if size >= a.batchSize {
		a.Flush()
	}
}

// deriveSource extracts a best-effort traffic source label from a
// referrer URL: the bare host for third-party referrers, "direct" when
// there is none.
func deriveSource(referrer string) string {
	if referrer == "" {
		return "direct"
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(referrer, "https://"), "http://")
	if idx := strings.IndexAny(trimmed, "/?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "direct"
	}
	return "ref:" + trimmed
}

// flush drains the current buffer and writes it to storage: UA resolution
// and hashing, source already derived on absorb, an IncrementClicks batch
// and an AppendClickLogs batch with a one-retry-at-half-chunk-size policy
// (implemented in storage.Gateway.AppendClickLogs itself). On failure the
// drained batch is merged back into the live buffer for a later attempt
// rather than discarded; force bypasses the back-off window for the final
// flush on shutdown.
func (a *Aggregator) flush(ctx context.Context, force bool) {
	a.mu.Lock()
	if !force && !a.nextAttempt.IsZero() && time.Now().Before(a.nextAttempt) {
		a.mu.Unlock()
		return
	}
	details := a.details
	deltas := a.deltas
	a.details = nil
	a.deltas = make(map[string]int64)
	a.mu.Unlock()

	if len(details) == 0 {
		return
	}
	metrics.SetClicksBufferEntries(0)

	toWrite := make([]models.ClickDetail, len(details))
	copy(toWrite, details)

	seenUA := make(map[string]bool)
	now := time.Now()
	for i := range toWrite {
		if toWrite[i].UserAgent == "" {
			continue
		}
		hash := HashUserAgent(toWrite[i].UserAgent)
		if !seenUA[hash] {
			seenUA[hash] = true
			rec := ParseUserAgent(hash, toWrite[i].UserAgent)
			rec.FirstSeen, rec.LastSeen = now, now
			if err := a.store.UpsertUserAgent(ctx, &rec); err != nil {
				a.log.Warn("upsert user agent failed", zap.Error(err))
			}
		}
		toWrite[i].UserAgent = hash
	}

	if err := a.store.IncrementClicks(ctx, deltas); err != nil {
		a.log.Error("increment clicks failed", zap.Error(err))
		metrics.IncClicksFlushed("error")
		a.retryLater(details, deltas)
		return
	}

	inserted, dropped, err := a.store.AppendClickLogs(ctx, toWrite)
	if err != nil {
		a.log.Error("append click logs failed", zap.Error(err), zap.Int("dropped", dropped))
		metrics.IncClicksFlushed("error")
		a.retryLater(details, deltas)
		return
	}
	if dropped > 0 {
		a.log.Warn("click log rows dropped after retry", zap.Int("dropped", dropped), zap.Int("inserted", inserted))
	}
	metrics.IncClicksFlushed("ok")
	a.mu.Lock()
	a.failures = 0
	a.nextAttempt = time.Time{}
	a.mu.Unlock()
	a.publishDeltas(deltas)
}

// retryLater merges a failed flush's drained data back into the live
// buffer and schedules an exponential back-off before the next attempt is
// allowed, doubling up to maxFlushBackoff.
func (a *Aggregator) retryLater(details []models.ClickDetail, deltas map[string]int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.details = append(details, a.details...)
	for code, delta := range deltas {
		a.deltas[code] += delta
	}
	metrics.SetClicksBufferEntries(len(a.details))

	a.failures++
	backoff := a.flushInterval << uint(a.failures-1)
	if backoff <= 0 || backoff > maxFlushBackoff {
		backoff = maxFlushBackoff
	}
	a.nextAttempt = time.Now().Add(backoff)
}

// publishDeltas fans out each code's per-flush click increment onto the
// eventbus so an open AnalyticsAPI.Stream SSE connection can push it live; a
// nil bus (no subscribers wired) is a silent no-op.
func (a *Aggregator) publishDeltas(deltas map[string]int64) {
	if a.bus == nil {
		return
	}
	for code, count := range deltas {
		payload, err := json.Marshal(map[string]interface{}{
			"code":  code,
			"delta": count,
			"at":    time.Now().UTC(),
		})
		if err != nil {
			continue
		}
		a.bus.Publish("clicks:"+code, payload)
	}
}

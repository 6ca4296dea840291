package clicks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/storage"
	"github.com/shortlinker/shortlinker/internal/system/eventbus"
)

// fakeGateway records the calls Aggregator.flush makes, embedding the
// Gateway interface (nil) so only the exercised methods need overrides.
type fakeGateway struct {
	storage.Gateway

	mu        sync.Mutex
	deltas    map[string]int64
	appended  []models.ClickDetail
	uaRecords []models.UserAgentRecord
}

func (f *fakeGateway) IncrementClicks(ctx context.Context, deltas map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deltas = deltas
	return nil
}

func (f *fakeGateway) AppendClickLogs(ctx context.Context, rows []models.ClickDetail) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, rows...)
	return len(rows), 0, nil
}

func (f *fakeGateway) UpsertUserAgent(ctx context.Context, rec *models.UserAgentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uaRecords = append(f.uaRecords, *rec)
	return nil
}

func TestAggregatorFlushOnExplicitTrigger(t *testing.T) {
	ingress := NewIngress(10, nil)
	gw := &fakeGateway{}
	agg := NewAggregator(ingress, gw, NoopLocator{}, nil, Config{AcceptorCount: 2, BatchSize: 100, FlushInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go agg.Run(ctx)

	ingress.TrySend(models.ClickDetail{Code: "a", UserAgent: "ua-1"})
	ingress.TrySend(models.ClickDetail{Code: "a", UserAgent: "ua-1"})
	ingress.TrySend(models.ClickDetail{Code: "b", UserAgent: "ua-2"})

	// give acceptors a moment to absorb, then force a flush
	time.Sleep(50 * time.Millisecond)
	agg.Flush()
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-agg.Done()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, int64(2), gw.deltas["a"])
	assert.Equal(t, int64(1), gw.deltas["b"])
	assert.Len(t, gw.appended, 3)
	for _, row := range gw.appended {
		assert.NotEqual(t, "ua-1", row.UserAgent, "user agent should be hashed before storage")
	}
}

func TestAggregatorFlushOnBatchSize(t *testing.T) {
	ingress := NewIngress(10, nil)
	gw := &fakeGateway{}
	agg := NewAggregator(ingress, gw, NoopLocator{}, nil, Config{AcceptorCount: 1, BatchSize: 2, FlushInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go agg.Run(ctx)

	ingress.TrySend(models.ClickDetail{Code: "x"})
	ingress.TrySend(models.ClickDetail{Code: "x"})

	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return gw.deltas["x"] == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-agg.Done()
}

func TestAggregatorPublishesDeltasOnBus(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe("clicks:a")
	defer bus.Unsubscribe("clicks:a", sub)

	ingress := NewIngress(10, nil)
	gw := &fakeGateway{}
	agg := NewAggregator(ingress, gw, NoopLocator{}, bus, Config{AcceptorCount: 1, BatchSize: 100, FlushInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go agg.Run(ctx)

	ingress.TrySend(models.ClickDetail{Code: "a"})
	time.Sleep(20 * time.Millisecond)
	agg.Flush()

	select {
	case payload := <-sub:
		assert.Contains(t, string(payload), `"code":"a"`)
	case <-time.After(time.Second):
		t.Fatal("expected a click delta event")
	}

	cancel()
	<-agg.Done()
}

func TestAggregatorFinalFlushOnShutdown(t *testing.T) {
	ingress := NewIngress(10, nil)
	gw := &fakeGateway{}
	agg := NewAggregator(ingress, gw, NoopLocator{}, nil, Config{AcceptorCount: 1, BatchSize: 1000, FlushInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go agg.Run(ctx)

	ingress.TrySend(models.ClickDetail{Code: "shutdown-case"})
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-agg.Done()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, int64(1), gw.deltas["shutdown-case"])
}

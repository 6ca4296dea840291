// Package metrics defines the Prometheus collectors exported at /metrics
// via the client_golang exporter. Package-level vars registered once on
// import, the common Prometheus Go idiom of a package-global registry
// rather than threading a registry handle through every component.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	existenceFilterFalsePositives = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlinker_existence_filter_false_positives_total",
		Help: "Number of times L0 reported possibly-present but storage disagreed.",
	})
	objectCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlinker_object_cache_hits_total",
		Help: "Number of L1 object cache hits.",
	})
	objectCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlinker_object_cache_misses_total",
		Help: "Number of L1 object cache misses (after L0/L2 passed).",
	})
	negativeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlinker_negative_cache_hits_total",
		Help: "Number of L2 negative cache hits.",
	})

	clicksChannelDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlinker_clicks_channel_dropped_total",
		Help: "Click events dropped before entering the aggregation buffer.",
	}, []string{"reason"})

	clicksBufferEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shortlinker_clicks_buffer_entries",
		Help: "Current number of click events held in the aggregator's in-memory buffer.",
	})

	clicksFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlinker_clicks_flushed_total",
		Help: "Click events flushed to storage, by outcome.",
	}, []string{"outcome"})

	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlinker_reloads_total",
		Help: "Reload attempts, by target and outcome.",
	}, []string{"target", "outcome"})

	ipcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlinker_ipc_requests_total",
		Help: "IPC requests handled, by command kind and outcome.",
	}, []string{"kind", "outcome"})
)

// IncExistenceFilterFalsePositive satisfies internal/cache.Metrics.
func IncExistenceFilterFalsePositive() { existenceFilterFalsePositives.Inc() }

// IncObjectCacheHit satisfies internal/cache.Metrics.
func IncObjectCacheHit() { objectCacheHits.Inc() }

// IncObjectCacheMiss satisfies internal/cache.Metrics.
func IncObjectCacheMiss() { objectCacheMisses.Inc() }

// IncNegativeCacheHit satisfies internal/cache.Metrics.
func IncNegativeCacheHit() { negativeCacheHits.Inc() }

// IncClicksDropped records a click dropped before entering the aggregator.
func IncClicksDropped(reason string) { clicksChannelDropped.WithLabelValues(reason).Inc() }

// SetClicksBufferEntries reports the aggregator's current buffer size.
func SetClicksBufferEntries(n int) { clicksBufferEntries.Set(float64(n)) }

// IncClicksFlushed records a flush outcome ("ok" or "error").
func IncClicksFlushed(outcome string) { clicksFlushed.WithLabelValues(outcome).Inc() }

// IncReload records a reload attempt outcome ("ok" or "error").
func IncReload(target, outcome string) { reloadsTotal.WithLabelValues(target, outcome).Inc() }

// IncIPCRequest records one handled IPC command.
func IncIPCRequest(kind, outcome string) { ipcRequestsTotal.WithLabelValues(kind, outcome).Inc() }

// Recorder adapts the package-level counters to internal/cache.Metrics.
type Recorder struct{}

func (Recorder) IncExistenceFilterFalsePositive() { IncExistenceFilterFalsePositive() }
func (Recorder) IncObjectCacheHit()               { IncObjectCacheHit() }
func (Recorder) IncObjectCacheMiss()              { IncObjectCacheMiss() }
func (Recorder) IncNegativeCacheHit()             { IncNegativeCacheHit() }

package api

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shortlinker/shortlinker/internal/redisx"
	"github.com/shortlinker/shortlinker/internal/storage"
)

var (
	requestCount = new(atomic.Int64)
	startTime    = time.Now()
)

// IncrementRequestCount counts one more served request, skipped for the
// health/ready/metrics endpoints themselves (see router.go).
func IncrementRequestCount() { requestCount.Add(1) }

// Health handles GET /health: a liveness probe with no dependency checks.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /ready: a readiness probe pinging storage and
// the Redis rate-limit client.
func Readiness(store storage.Gateway, redis *redisx.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		storageHealthy := store.Ping(ctx) == nil
		redisHealthy := true
		if redis != nil {
			redisHealthy = redis.Ping(ctx) == nil
		}

		status := http.StatusOK
		if !storageHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]interface{}{
			"status":    map[string]bool{"storage": storageHealthy, "redis": redisHealthy},
			"ready":     storageHealthy && redisHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Metrics handles GET /metrics in Prometheus exposition format, serving
// the package-level collectors registered in internal/metrics.
func Metrics() http.Handler {
	return promhttp.Handler()
}

// Uptime handles GET /uptime, a small JSON process-stats endpoint for
// human debugging alongside the Prometheus surface.
func Uptime(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := time.Since(startTime)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int64(uptime.Seconds()),
		"requests_total": requestCount.Load(),
		"memory": map[string]interface{}{
			"alloc_mb": float64(m.Alloc) / 1024 / 1024,
			"sys_mb":   float64(m.Sys) / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	})
}

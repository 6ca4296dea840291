package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/storage"
	"github.com/shortlinker/shortlinker/internal/system/eventbus"
)

// AnalyticsAPI serves per-code stats and a live SSE stream, reading from
// the rollup tables and fanning live updates out over eventbus.Bus.
type AnalyticsAPI struct {
	store storage.Gateway
	bus   *eventbus.Bus
	log   *zap.Logger
}

// NewAnalyticsAPI builds the analytics handler group.
func NewAnalyticsAPI(store storage.Gateway, bus *eventbus.Bus, log *zap.Logger) *AnalyticsAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalyticsAPI{store: store, bus: bus, log: log}
}

// ClickTopic is the eventbus topic a code's click flush is published on;
// the aggregator publishes here so Stream can fan it out over SSE.
func ClickTopic(code string) string { return "clicks:" + code }

// Get handles GET /api/analytics/{code}?period=24h|7d|30d, reading the
// hourly rollup table for the requested window.
func (a *AnalyticsAPI) Get(w http.ResponseWriter, r *http.Request, code string) {
	period, err := parsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := a.store.Get(r.Context(), code)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	now := time.Now().UTC()
	start := now.Add(-period)
	var totalInWindow int64
	var peakHourBucket time.Time
	var peakCount int64

	for bucket := start.Truncate(time.Hour); !bucket.After(now); bucket = bucket.Add(time.Hour) {
		rollup, err := a.store.RollupReadHourly(r.Context(), code, bucket)
		if err != nil {
			continue
		}
		totalInWindow += rollup.ClickCount
		if rollup.ClickCount > peakCount {
			peakCount = rollup.ClickCount
			peakHourBucket = bucket
		}
	}

	hours := period.Hours()
	var clickRate float64
	if hours > 0 {
		clickRate = float64(totalInWindow) / hours
	}

	resp := map[string]interface{}{
		"code":            code,
		"total_clicks":    link.ClickCount,
		"clicks_in_window": totalInWindow,
		"click_rate_per_hour": clickRate,
	}
	if peakCount > 0 {
		resp["peak_hour"] = peakHourBucket.Format(time.RFC3339)
		resp["peak_hour_count"] = peakCount
	}
	writeJSON(w, http.StatusOK, resp)
}

func parsePeriod(s string) (time.Duration, error) {
	switch s {
	case "", "24h":
		return 24 * time.Hour, nil
	case "7d":
		return 7 * 24 * time.Hour, nil
	case "30d":
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid period, use 24h, 7d, or 30d")
	}
}

// Stream handles GET /api/analytics/{code}/stream: an SSE feed of every
// click flush event touching code, with a 30s heartbeat matching the
// teacher's StreamAnalytics.
func (a *AnalyticsAPI) Stream(w http.ResponseWriter, r *http.Request, code string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	topic := ClickTopic(code)
	ch := a.bus.Subscribe(topic)
	defer a.bus.Unsubscribe(topic, ch)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

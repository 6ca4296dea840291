package clicks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// RollupScheduler runs the hourly and daily rollup jobs on
// robfig/cron/v3, recomputing click_stats_hourly/daily (+ global twins)
// from the raw click_logs rows.
type RollupScheduler struct {
	store storage.Gateway
	cron  *cron.Cron
	log   *zap.Logger
}

// NewRollupScheduler builds a scheduler. Hourly rollup runs 5 minutes past
// the hour (letting in-flight flushes land first); daily rollup runs at
// 00:10 UTC for the prior day.
func NewRollupScheduler(store storage.Gateway, log *zap.Logger) *RollupScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RollupScheduler{store: store, cron: cron.New(cron.WithLocation(time.UTC)), log: log}
}

// Start registers the jobs and begins the cron scheduler's goroutine.
func (s *RollupScheduler) Start() error {
	if _, err := s.cron.AddFunc("5 * * * *", s.runHourly); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("10 0 * * *", s.runDaily); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for any in-flight job to finish and halts the scheduler.
func (s *RollupScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *RollupScheduler) runHourly() {
	bucket := time.Now().UTC().Truncate(time.Hour).Add(-time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.computeHourly(ctx, bucket); err != nil {
		s.log.Error("hourly rollup failed", zap.Time("bucket", bucket), zap.Error(err))
	}
}

func (s *RollupScheduler) runDaily() {
	bucket := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.computeDaily(ctx, bucket); err != nil {
		s.log.Error("daily rollup failed", zap.Time("bucket", bucket), zap.Error(err))
	}
}

// computeHourly reads every click_logs row in [bucket, bucket+1h), groups
// by code, and writes a HourlyRollup per code plus one GlobalHourlyRollup.
func (s *RollupScheduler) computeHourly(ctx context.Context, bucket time.Time) error {
	rows, err := s.store.ClickLogsInWindow(ctx, bucket, bucket.Add(time.Hour))
	if err != nil {
		return err
	}

	perCode := map[string]*models.HourlyRollup{}
	uniqueLinks := map[string]bool{}
	globalReferrers := map[string]int64{}
	globalCountries := map[string]int64{}

	for _, row := range rows {
		r, ok := perCode[row.Code]
		if !ok {
			r = &models.HourlyRollup{
				Code:           row.Code,
				HourBucket:     bucket,
				ReferrerCounts: map[string]int64{},
				CountryCounts:  map[string]int64{},
				SourceCounts:   map[string]int64{},
			}
			perCode[row.Code] = r
		}
		r.ClickCount++
		bump(r.ReferrerCounts, row.Referrer)
		bump(r.CountryCounts, row.Country)
		bump(r.SourceCounts, row.Source)

		uniqueLinks[row.Code] = true
		bump(globalReferrers, row.Referrer)
		bump(globalCountries, row.Country)
	}

	for _, r := range perCode {
		if err := s.store.RollupWriteHourly(ctx, r); err != nil {
			return err
		}
	}

	global := &models.GlobalHourlyRollup{
		HourBucket:   bucket,
		TotalClicks:  int64(len(rows)),
		UniqueLinks:  len(uniqueLinks),
		TopReferrers: topK(globalReferrers, 10),
		TopCountries: topK(globalCountries, 10),
	}
	return s.store.RollupWriteGlobalHourly(ctx, global)
}

// computeDaily reads every click_logs row for the day and writes a
// DailyRollup per code plus one GlobalDailyRollup. It recomputes from raw
// rows rather than summing the day's HourlyRollups, keeping the daily
// unique-referrer/country counts exact rather than an approximation of a
// union of hourly sets.
func (s *RollupScheduler) computeDaily(ctx context.Context, bucket time.Time) error {
	rows, err := s.store.ClickLogsInWindow(ctx, bucket, bucket.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	type agg struct {
		count     int64
		referrers map[string]int64
		countries map[string]int64
		sources   map[string]int64
		visitors  map[string]bool
	}
	perCode := map[string]*agg{}
	uniqueLinks := map[string]bool{}
	globalReferrers := map[string]int64{}
	globalCountries := map[string]int64{}

	for _, row := range rows {
		a, ok := perCode[row.Code]
		if !ok {
			a = &agg{referrers: map[string]int64{}, countries: map[string]int64{}, sources: map[string]int64{}, visitors: map[string]bool{}}
			perCode[row.Code] = a
		}
		a.count++
		bump(a.referrers, row.Referrer)
		bump(a.countries, row.Country)
		bump(a.sources, row.Source)
		if row.IP != "" {
			a.visitors[VisitorHash(row.IP, row.UserAgent)] = true
		}

		uniqueLinks[row.Code] = true
		bump(globalReferrers, row.Referrer)
		bump(globalCountries, row.Country)
	}

	for code, a := range perCode {
		r := &models.DailyRollup{
			Code:            code,
			DayBucket:       bucket,
			ClickCount:      a.count,
			UniqueReferrers: len(a.referrers),
			UniqueCountries: len(a.countries),
			UniqueSources:   len(a.sources),
			UniqueVisitors:  len(a.visitors),
			TopReferrers:    topK(a.referrers, 10),
			TopSources:      topK(a.sources, 10),
		}
		if err := s.store.RollupWriteDaily(ctx, r); err != nil {
			return err
		}
	}

	global := &models.GlobalDailyRollup{
		DayBucket:    bucket,
		TotalClicks:  int64(len(rows)),
		UniqueLinks:  len(uniqueLinks),
		TopReferrers: topK(globalReferrers, 10),
		TopCountries: topK(globalCountries, 10),
	}
	return s.store.RollupWriteGlobalDaily(ctx, global)
}

func bump(m map[string]int64, key string) {
	if key == "" {
		return
	}
	m[key]++
}

// topK truncates a counts map to its k largest entries, bounding the JSON
// column size written to storage.
func topK(m map[string]int64, k int) map[string]int64 {
	if len(m) <= k {
		return m
	}
	type kv struct {
		key   string
		count int64
	}
	pairs := make([]kv, 0, len(m))
	for key, count := range m {
		pairs = append(pairs, kv{key, count})
	}
	for i := 0; i < k; i++ {
		max := i
		for j := i + 1; j < len(pairs); j++ {
			if pairs[j].count > pairs[max].count {
				max = j
			}
		}
		pairs[i], pairs[max] = pairs[max], pairs[i]
	}
	out := make(map[string]int64, k)
	for i := 0; i < k; i++ {
		out[pairs[i].key] = pairs[i].count
	}
	return out
}

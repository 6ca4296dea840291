// Package storage presents a single async interface over the relational
// store backing the shortener — short links, click logs, rollups and
// system config — with one SQL implementation parameterized by dialect
// (PostgreSQL, MySQL/MariaDB, SQLite) selected from the connection string.
package storage

import (
	"context"
	"time"

	"github.com/shortlinker/shortlinker/internal/models"
)

// Gateway is the single interface presented to the redirect resolver, the
// click pipeline, the reload coordinator and the admin API. sqlGateway
// satisfies it identically for all three dialects.
type Gateway interface {
	Get(ctx context.Context, code string) (*models.ShortLink, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.ShortLink, int, error)
	Upsert(ctx context.Context, link *models.ShortLink) error
	Remove(ctx context.Context, code string) error
	BulkUpsert(ctx context.Context, links []models.ShortLink, mode models.BulkUpsertMode) (int, error)

	// LoadAllCodes returns every known code, for existence-filter rebuild.
	LoadAllCodes(ctx context.Context) ([]string, error)

	IncrementClicks(ctx context.Context, deltas map[string]int64) error
	AppendClickLogs(ctx context.Context, rows []models.ClickDetail) (inserted int, dropped int, err error)

	UpsertUserAgent(ctx context.Context, rec *models.UserAgentRecord) error

	ReadConfig(ctx context.Context, key string) (*models.ConfigEntry, error)
	ListConfig(ctx context.Context) ([]models.ConfigEntry, error)
	WriteConfig(ctx context.Context, key, value, actor string) error

	RollupReadHourly(ctx context.Context, code string, bucket time.Time) (*models.HourlyRollup, error)
	RollupWriteHourly(ctx context.Context, r *models.HourlyRollup) error
	RollupReadDaily(ctx context.Context, code string, bucket time.Time) (*models.DailyRollup, error)
	RollupWriteDaily(ctx context.Context, r *models.DailyRollup) error
	RollupWriteGlobalHourly(ctx context.Context, r *models.GlobalHourlyRollup) error
	RollupWriteGlobalDaily(ctx context.Context, r *models.GlobalDailyRollup) error

	// ClickLogsInWindow reads raw click_logs rows for rollup computation.
	ClickLogsInWindow(ctx context.Context, start, end time.Time) ([]models.ClickDetail, error)
	// DeleteClickLogsBefore deletes raw click_logs rows older than cutoff,
	// and is only ever called by the retention task after confirming the
	// corresponding rollup exists.
	DeleteClickLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// HourlyRollupExists reports whether a rollup bucket has already been
	// computed for the given hour across every code — the retention
	// task's gate before sweeping that hour's raw rows.
	HourlyRollupExists(ctx context.Context, bucket time.Time) (bool, error)

	Close() error
	Ping(ctx context.Context) error
}

// PoolConfig captures the connection-pool policy shared by all dialects.
type PoolConfig struct {
	MinOpen         int
	MaxOpen         int
	TestBeforeAcquire bool
	IdleTimeout     time.Duration
	MaxLifetime     time.Duration
}

// DefaultPoolConfig returns a pool with a minimum of 2 connections, the
// given configurable maximum, a 5 minute idle timeout and a 1 hour max
// lifetime.
func DefaultPoolConfig(maxOpen int) PoolConfig {
	if maxOpen < 2 {
		maxOpen = 20
	}
	return PoolConfig{
		MinOpen:           2,
		MaxOpen:            maxOpen,
		TestBeforeAcquire:  true,
		IdleTimeout:        5 * time.Minute,
		MaxLifetime:        time.Hour,
	}
}

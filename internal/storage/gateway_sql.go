package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/shortlinker/shortlinker/internal/errs"
	"github.com/shortlinker/shortlinker/internal/models"
)

// sqlGateway implements Gateway over database/sql, parameterized by a
// dialect for the handful of places Postgres/MySQL/SQLite syntax diverges.
// All three driver-specific go.mod entries (lib/pq, go-sql-driver/mysql,
// modernc.org/sqlite) are wired through this single implementation rather
// than three near-duplicate files.
type sqlGateway struct {
	db      *sql.DB
	dialect dialect
}

// rebind rewrites a query written with `?` placeholders into the target
// dialect's parameter syntax (no-op for MySQL/SQLite).
func (g *sqlGateway) rebind(query string) string {
	if g.dialect.placeholder(1) == "?" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString(g.dialect.placeholder(n))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (g *sqlGateway) Close() error { return g.db.Close() }

func (g *sqlGateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) Get(ctx context.Context, code string) (*models.ShortLink, error) {
	query := g.rebind(`SELECT code, target, created_at, expires_at, password, click_count
	                    FROM short_links WHERE code = ?`)
	row := g.db.QueryRowContext(ctx, query, code)

	var link models.ShortLink
	var expiresAt sql.NullTime
	var password sql.NullString
	if err := row.Scan(&link.Code, &link.Target, &link.CreatedAt, &expiresAt, &password, &link.ClickCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		link.ExpiresAt = &t
	}
	link.Password = password.String
	return &link, nil
}

func (g *sqlGateway) List(ctx context.Context, filter models.ListFilter) ([]models.ShortLink, int, error) {
	var where []string
	var args []interface{}

	if filter.CreatedAfter != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *filter.CreatedBefore)
	}
	if filter.OnlyExpired {
		where = append(where, "expires_at IS NOT NULL AND expires_at <= ?")
		args = append(args, time.Now())
	}
	if filter.OnlyActive {
		where = append(where, "(expires_at IS NULL OR expires_at > ?)")
		args = append(args, time.Now())
	}
	if filter.Query != "" {
		where = append(where, "(code LIKE ? OR target LIKE ?)")
		like := "%" + filter.Query + "%"
		args = append(args, like, like)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := g.rebind("SELECT COUNT(*) FROM short_links " + whereClause)
	var total int
	if err := g.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}

	page, pageSize := filter.Page, filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if page < 0 {
		page = 0
	}

	listQuery := g.rebind(`SELECT code, target, created_at, expires_at, password, click_count
	                        FROM short_links ` + whereClause + `
	                        ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	args = append(args, pageSize, page*pageSize)

	rows, err := g.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer rows.Close()

	var links []models.ShortLink
	for rows.Next() {
		var link models.ShortLink
		var expiresAt sql.NullTime
		var password sql.NullString
		if err := rows.Scan(&link.Code, &link.Target, &link.CreatedAt, &expiresAt, &password, &link.ClickCount); err != nil {
			return nil, 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			link.ExpiresAt = &t
		}
		link.Password = password.String
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return links, total, nil
}

// Upsert inserts or replaces a link by primary key, preserving
// click_count on conflict: the upsert statement never touches it on
// update.
func (g *sqlGateway) Upsert(ctx context.Context, link *models.ShortLink) error {
	if link.Code == "" {
		return errs.ErrValidation
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	query := g.rebind(g.dialect.upsertShortLink())
	var expiresAt interface{}
	if link.ExpiresAt != nil {
		expiresAt = *link.ExpiresAt
	}
	var password interface{}
	if link.Password != "" {
		password = link.Password
	}
	if _, err := g.db.ExecContext(ctx, query, link.Code, link.Target, link.CreatedAt, expiresAt, password); err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) Remove(ctx context.Context, code string) error {
	query := g.rebind(`DELETE FROM short_links WHERE code = ?`)
	res, err := g.db.ExecContext(ctx, query, code)
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// BulkUpsert inserts many links in one transaction. In SkipExisting mode,
// rows that collide on the primary key are left untouched; in Overwrite
// mode they are replaced (click_count still preserved, consistent with
// Upsert).
func (g *sqlGateway) BulkUpsert(ctx context.Context, links []models.ShortLink, mode models.BulkUpsertMode) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer tx.Rollback()

	var query string
	switch mode {
	case models.Overwrite:
		query = g.rebind(g.dialect.upsertShortLink())
	default: // SkipExisting
		query = g.skipExistingInsert()
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer stmt.Close()

	inserted := 0
	for _, link := range links {
		if link.Code == "" {
			continue
		}
		var expiresAt interface{}
		if link.ExpiresAt != nil {
			expiresAt = *link.ExpiresAt
		}
		var password interface{}
		if link.Password != "" {
			password = link.Password
		}
		created := link.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		res, err := stmt.ExecContext(ctx, link.Code, link.Target, created, expiresAt, password)
		if err != nil {
			return inserted, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return inserted, nil
}

func (g *sqlGateway) skipExistingInsert() string {
	switch g.dialect.name {
	case "postgres":
		return g.rebind(`INSERT INTO short_links (code, target, created_at, expires_at, password, click_count)
		                  VALUES (?, ?, ?, ?, ?, 0) ON CONFLICT (code) DO NOTHING`)
	case "mysql":
		return g.rebind(`INSERT IGNORE INTO short_links (code, target, created_at, expires_at, password, click_count)
		                  VALUES (?, ?, ?, ?, ?, 0)`)
	default: // sqlite
		return g.rebind(`INSERT OR IGNORE INTO short_links (code, target, created_at, expires_at, password, click_count)
		                  VALUES (?, ?, ?, ?, ?, 0)`)
	}
}

func (g *sqlGateway) LoadAllCodes(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT code FROM short_links`)
	if err != nil {
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// IncrementClicks applies a batch of per-code click-count deltas in a
// single transaction. Codes that no longer exist (deleted between emit
// and flush) are silently skipped.
func (g *sqlGateway) IncrementClicks(ctx context.Context, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer tx.Rollback()

	query := g.rebind(`UPDATE short_links SET click_count = click_count + ? WHERE code = ?`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer stmt.Close()

	for code, delta := range deltas {
		if _, err := stmt.ExecContext(ctx, delta, code); err != nil {
			return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
		}
	}
	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

// AppendClickLogs batches an insert of detailed click rows. On failure it
// is retried once with the batch split into halves; rows that still fail
// after the retry are dropped and counted, never silently lost from the
// caller's point of view. The error result is always nil, so dropped rows
// are not retried again by the caller.
func (g *sqlGateway) AppendClickLogs(ctx context.Context, rowsIn []models.ClickDetail) (int, int, error) {
	if len(rowsIn) == 0 {
		return 0, 0, nil
	}
	inserted, err := g.insertClickLogs(ctx, rowsIn)
	if err == nil {
		return inserted, 0, nil
	}
	if len(rowsIn) <= 1 {
		return inserted, len(rowsIn) - inserted, nil
	}

	mid := len(rowsIn) / 2
	i1, d1, _ := g.retryChunk(ctx, rowsIn[:mid])
	i2, d2, _ := g.retryChunk(ctx, rowsIn[mid:])
	return inserted + i1 + i2, d1 + d2, nil
}

func (g *sqlGateway) retryChunk(ctx context.Context, rows []models.ClickDetail) (int, int, error) {
	inserted, err := g.insertClickLogs(ctx, rows)
	if err != nil {
		return inserted, len(rows) - inserted, err
	}
	return inserted, 0, nil
}

func (g *sqlGateway) insertClickLogs(ctx context.Context, rows []models.ClickDetail) (int, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := g.rebind(`INSERT INTO click_logs (short_code, clicked_at, referrer, ip_address, country, city, source, user_agent_hash)
	                    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Code, r.Timestamp, nullableString(r.Referrer),
			nullableString(r.IP), nullableString(r.Country), nullableString(r.City),
			nullableString(r.Source), nullableString(r.UserAgent)); err != nil {
			return 0, err // the transaction rolls back, so no row of this batch is kept
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (g *sqlGateway) UpsertUserAgent(ctx context.Context, rec *models.UserAgentRecord) error {
	var query string
	switch g.dialect.name {
	case "postgres":
		query = g.rebind(`INSERT INTO user_agents (hash, user_agent_string, first_seen, last_seen,
		                    browser_name, browser_version, os_name, os_version, device_category, device_vendor, is_bot)
		                    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		                    ON CONFLICT (hash) DO UPDATE SET last_seen = EXCLUDED.last_seen`)
	case "mysql":
		query = g.rebind(`INSERT INTO user_agents (hash, user_agent_string, first_seen, last_seen,
		                    browser_name, browser_version, os_name, os_version, device_category, device_vendor, is_bot)
		                    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		                    ON DUPLICATE KEY UPDATE last_seen = VALUES(last_seen)`)
	default:
		query = g.rebind(`INSERT INTO user_agents (hash, user_agent_string, first_seen, last_seen,
		                    browser_name, browser_version, os_name, os_version, device_category, device_vendor, is_bot)
		                    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		                    ON CONFLICT(hash) DO UPDATE SET last_seen = excluded.last_seen`)
	}
	_, err := g.db.ExecContext(ctx, query, rec.Hash, rec.UserAgentString, rec.FirstSeen, rec.LastSeen,
		nullableString(rec.BrowserName), nullableString(rec.BrowserVersion), nullableString(rec.OSName),
		nullableString(rec.OSVersion), nullableString(rec.DeviceCategory), nullableString(rec.DeviceVendor), rec.IsBot)
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) ReadConfig(ctx context.Context, key string) (*models.ConfigEntry, error) {
	query := g.rebind(`SELECT key, value FROM system_config WHERE key = ?`)
	row := g.db.QueryRowContext(ctx, query, key)
	var entry models.ConfigEntry
	if err := row.Scan(&entry.Key, &entry.Value); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return &entry, nil
}

func (g *sqlGateway) ListConfig(ctx context.Context) ([]models.ConfigEntry, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT key, value FROM system_config ORDER BY key`)
	if err != nil {
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer rows.Close()

	var out []models.ConfigEntry
	for rows.Next() {
		var e models.ConfigEntry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WriteConfig updates (or inserts) a config value and appends a
// config_history row recording the actor and before/after values, in the
// same transaction.
func (g *sqlGateway) WriteConfig(ctx context.Context, key, value, actor string) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer tx.Rollback()

	var oldValue sql.NullString
	selectQuery := g.rebind(`SELECT value FROM system_config WHERE key = ?`)
	_ = tx.QueryRowContext(ctx, selectQuery, key).Scan(&oldValue)

	var upsertQuery string
	switch g.dialect.name {
	case "postgres":
		upsertQuery = g.rebind(`INSERT INTO system_config (key, value) VALUES (?, ?)
		                         ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`)
	case "mysql":
		upsertQuery = g.rebind(`INSERT INTO system_config (key, value) VALUES (?, ?)
		                         ON DUPLICATE KEY UPDATE value = VALUES(value)`)
	default:
		upsertQuery = g.rebind(`INSERT INTO system_config (key, value) VALUES (?, ?)
		                         ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	}
	if _, err := tx.ExecContext(ctx, upsertQuery, key, value); err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}

	historyQuery := g.rebind(`INSERT INTO config_history (config_key, old_value, new_value, changed_at, changed_by)
	                           VALUES (?, ?, ?, ?, ?)`)
	var oldVal interface{}
	if oldValue.Valid {
		oldVal = oldValue.String
	}
	if _, err := tx.ExecContext(ctx, historyQuery, key, oldVal, value, time.Now(), nullableString(actor)); err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) RollupReadHourly(ctx context.Context, code string, bucket time.Time) (*models.HourlyRollup, error) {
	query := g.rebind(`SELECT click_count, referrer_counts, country_counts, source_counts
	                    FROM click_stats_hourly WHERE short_code = ? AND hour_bucket = ?`)
	row := g.db.QueryRowContext(ctx, query, code, bucket)
	var r models.HourlyRollup
	r.Code, r.HourBucket = code, bucket
	var ref, ctry, src sql.NullString
	if err := row.Scan(&r.ClickCount, &ref, &ctry, &src); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	r.ReferrerCounts = decodeCounts(ref.String)
	r.CountryCounts = decodeCounts(ctry.String)
	r.SourceCounts = decodeCounts(src.String)
	return &r, nil
}

// RollupWriteHourly is idempotent per (code, bucket): it replaces the
// bucket wholesale with the recomputed value, never accumulates.
func (g *sqlGateway) RollupWriteHourly(ctx context.Context, r *models.HourlyRollup) error {
	var query string
	switch g.dialect.name {
	case "postgres":
		query = g.rebind(`INSERT INTO click_stats_hourly (short_code, hour_bucket, click_count, referrer_counts, country_counts, source_counts)
		                   VALUES (?, ?, ?, ?, ?, ?)
		                   ON CONFLICT (short_code, hour_bucket) DO UPDATE SET
		                     click_count = EXCLUDED.click_count, referrer_counts = EXCLUDED.referrer_counts,
		                     country_counts = EXCLUDED.country_counts, source_counts = EXCLUDED.source_counts`)
	case "mysql":
		query = g.rebind(`INSERT INTO click_stats_hourly (short_code, hour_bucket, click_count, referrer_counts, country_counts, source_counts)
		                   VALUES (?, ?, ?, ?, ?, ?)
		                   ON DUPLICATE KEY UPDATE click_count = VALUES(click_count), referrer_counts = VALUES(referrer_counts),
		                     country_counts = VALUES(country_counts), source_counts = VALUES(source_counts)`)
	default:
		query = g.rebind(`INSERT INTO click_stats_hourly (short_code, hour_bucket, click_count, referrer_counts, country_counts, source_counts)
		                   VALUES (?, ?, ?, ?, ?, ?)
		                   ON CONFLICT(short_code, hour_bucket) DO UPDATE SET
		                     click_count = excluded.click_count, referrer_counts = excluded.referrer_counts,
		                     country_counts = excluded.country_counts, source_counts = excluded.source_counts`)
	}
	_, err := g.db.ExecContext(ctx, query, r.Code, r.HourBucket, r.ClickCount,
		encodeCounts(r.ReferrerCounts), encodeCounts(r.CountryCounts), encodeCounts(r.SourceCounts))
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) RollupReadDaily(ctx context.Context, code string, bucket time.Time) (*models.DailyRollup, error) {
	query := g.rebind(`SELECT click_count, unique_referrers, unique_countries, top_referrers, unique_sources, top_sources, unique_visitors
	                    FROM click_stats_daily WHERE short_code = ? AND day_bucket = ?`)
	row := g.db.QueryRowContext(ctx, query, code, bucket)
	var r models.DailyRollup
	r.Code, r.DayBucket = code, bucket
	var topRef, topSrc sql.NullString
	var uniqRef, uniqCtry, uniqSrc, uniqVis sql.NullInt32
	if err := row.Scan(&r.ClickCount, &uniqRef, &uniqCtry, &topRef, &uniqSrc, &topSrc, &uniqVis); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	r.UniqueReferrers = int(uniqRef.Int32)
	r.UniqueCountries = int(uniqCtry.Int32)
	r.UniqueSources = int(uniqSrc.Int32)
	r.UniqueVisitors = int(uniqVis.Int32)
	r.TopReferrers = decodeCounts(topRef.String)
	r.TopSources = decodeCounts(topSrc.String)
	return &r, nil
}

func (g *sqlGateway) RollupWriteDaily(ctx context.Context, r *models.DailyRollup) error {
	var query string
	switch g.dialect.name {
	case "postgres":
		query = g.rebind(`INSERT INTO click_stats_daily (short_code, day_bucket, click_count, unique_referrers, unique_countries, top_referrers, unique_sources, top_sources, unique_visitors)
		                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		                   ON CONFLICT (short_code, day_bucket) DO UPDATE SET
		                     click_count = EXCLUDED.click_count, unique_referrers = EXCLUDED.unique_referrers,
		                     unique_countries = EXCLUDED.unique_countries, top_referrers = EXCLUDED.top_referrers,
		                     unique_sources = EXCLUDED.unique_sources, top_sources = EXCLUDED.top_sources,
		                     unique_visitors = EXCLUDED.unique_visitors`)
	case "mysql":
		query = g.rebind(`INSERT INTO click_stats_daily (short_code, day_bucket, click_count, unique_referrers, unique_countries, top_referrers, unique_sources, top_sources, unique_visitors)
		                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		                   ON DUPLICATE KEY UPDATE click_count = VALUES(click_count), unique_referrers = VALUES(unique_referrers),
		                     unique_countries = VALUES(unique_countries), top_referrers = VALUES(top_referrers),
		                     unique_sources = VALUES(unique_sources), top_sources = VALUES(top_sources),
		                     unique_visitors = VALUES(unique_visitors)`)
	default:
		query = g.rebind(`INSERT INTO click_stats_daily (short_code, day_bucket, click_count, unique_referrers, unique_countries, top_referrers, unique_sources, top_sources, unique_visitors)
		                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		                   ON CONFLICT(short_code, day_bucket) DO UPDATE SET
		                     click_count = excluded.click_count, unique_referrers = excluded.unique_referrers,
		                     unique_countries = excluded.unique_countries, top_referrers = excluded.top_referrers,
		                     unique_sources = excluded.unique_sources, top_sources = excluded.top_sources,
		                     unique_visitors = excluded.unique_visitors`)
	}
	_, err := g.db.ExecContext(ctx, query, r.Code, r.DayBucket, r.ClickCount, r.UniqueReferrers, r.UniqueCountries,
		encodeCounts(r.TopReferrers), r.UniqueSources, encodeCounts(r.TopSources), r.UniqueVisitors)
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) RollupWriteGlobalHourly(ctx context.Context, r *models.GlobalHourlyRollup) error {
	var query string
	switch g.dialect.name {
	case "postgres":
		query = g.rebind(`INSERT INTO click_stats_global_hourly (hour_bucket, total_clicks, unique_links, top_referrers, top_countries)
		                   VALUES (?, ?, ?, ?, ?)
		                   ON CONFLICT (hour_bucket) DO UPDATE SET total_clicks = EXCLUDED.total_clicks,
		                     unique_links = EXCLUDED.unique_links, top_referrers = EXCLUDED.top_referrers, top_countries = EXCLUDED.top_countries`)
	case "mysql":
		query = g.rebind(`INSERT INTO click_stats_global_hourly (hour_bucket, total_clicks, unique_links, top_referrers, top_countries)
		                   VALUES (?, ?, ?, ?, ?)
		                   ON DUPLICATE KEY UPDATE total_clicks = VALUES(total_clicks), unique_links = VALUES(unique_links),
		                     top_referrers = VALUES(top_referrers), top_countries = VALUES(top_countries)`)
	default:
		query = g.rebind(`INSERT INTO click_stats_global_hourly (hour_bucket, total_clicks, unique_links, top_referrers, top_countries)
		                   VALUES (?, ?, ?, ?, ?)
		                   ON CONFLICT(hour_bucket) DO UPDATE SET total_clicks = excluded.total_clicks,
		                     unique_links = excluded.unique_links, top_referrers = excluded.top_referrers, top_countries = excluded.top_countries`)
	}
	_, err := g.db.ExecContext(ctx, query, r.HourBucket, r.TotalClicks, r.UniqueLinks,
		encodeCounts(r.TopReferrers), encodeCounts(r.TopCountries))
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) RollupWriteGlobalDaily(ctx context.Context, r *models.GlobalDailyRollup) error {
	var query string
	switch g.dialect.name {
	case "postgres":
		query = g.rebind(`INSERT INTO click_stats_global_daily (day_bucket, total_clicks, unique_links, top_referrers, top_countries)
		                   VALUES (?, ?, ?, ?, ?)
		                   ON CONFLICT (day_bucket) DO UPDATE SET total_clicks = EXCLUDED.total_clicks,
		                     unique_links = EXCLUDED.unique_links, top_referrers = EXCLUDED.top_referrers, top_countries = EXCLUDED.top_countries`)
	case "mysql":
		query = g.rebind(`INSERT INTO click_stats_global_daily (day_bucket, total_clicks, unique_links, top_referrers, top_countries)
		                   VALUES (?, ?, ?, ?, ?)
		                   ON DUPLICATE KEY UPDATE total_clicks = VALUES(total_clicks), unique_links = VALUES(unique_links),
		                     top_referrers = VALUES(top_referrers), top_countries = VALUES(top_countries)`)
	default:
		query = g.rebind(`INSERT INTO click_stats_global_daily (day_bucket, total_clicks, unique_links, top_referrers, top_countries)
		                   VALUES (?, ?, ?, ?, ?)
		                   ON CONFLICT(day_bucket) DO UPDATE SET total_clicks = excluded.total_clicks,
		                     unique_links = excluded.unique_links, top_referrers = excluded.top_referrers, top_countries = excluded.top_countries`)
	}
	_, err := g.db.ExecContext(ctx, query, r.DayBucket, r.TotalClicks, r.UniqueLinks,
		encodeCounts(r.TopReferrers), encodeCounts(r.TopCountries))
	if err != nil {
		return pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return nil
}

func (g *sqlGateway) ClickLogsInWindow(ctx context.Context, start, end time.Time) ([]models.ClickDetail, error) {
	query := g.rebind(`SELECT short_code, clicked_at, referrer, ip_address, country, city, source, user_agent_hash
	                    FROM click_logs WHERE clicked_at >= ? AND clicked_at < ?`)
	rows, err := g.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	defer rows.Close()

	var out []models.ClickDetail
	for rows.Next() {
		var d models.ClickDetail
		var referrer, ip, country, city, source, uaHash sql.NullString
		if err := rows.Scan(&d.Code, &d.Timestamp, &referrer, &ip, &country, &city, &source, &uaHash); err != nil {
			return nil, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
		}
		d.Referrer, d.IP, d.Country, d.City, d.Source, d.UserAgent =
			referrer.String, ip.String, country.String, city.String, source.String, uaHash.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (g *sqlGateway) DeleteClickLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := g.rebind(`DELETE FROM click_logs WHERE clicked_at < ?`)
	res, err := g.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (g *sqlGateway) HourlyRollupExists(ctx context.Context, bucket time.Time) (bool, error) {
	query := g.rebind(`SELECT COUNT(*) FROM click_stats_global_hourly WHERE hour_bucket = ?`)
	var count int
	if err := g.db.QueryRowContext(ctx, query, bucket).Scan(&count); err != nil {
		return false, pkgerrors.Wrap(errs.ErrDatabaseTransient, err.Error())
	}
	return count > 0, nil
}

// encodeCounts/decodeCounts implement the compact top-K JSON object
// columns (map of label -> count).
func encodeCounts(m map[string]int64) interface{} {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeCounts(s string) map[string]int64 {
	if s == "" {
		return nil
	}
	var m map[string]int64
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

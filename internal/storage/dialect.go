package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures the handful of places Postgres, MySQL and SQLite
// disagree: positional-parameter syntax and the upsert clause. Everything
// else (query shape, transaction boundaries, Go-side logic) is shared by
// sqlGateway across all three.
type dialect struct {
	name       string
	driverName string
	// placeholder returns the parameter marker for the i-th (1-based)
	// bound argument.
	placeholder func(i int) string
	// upsertShortLink returns the full INSERT .. ON CONFLICT / ON DUPLICATE
	// KEY statement for the short_links table, preserving
	// click_count on conflict.
	upsertShortLink func() string
}

func placeholderDollar(i int) string { return fmt.Sprintf("$%d", i) }
func placeholderQuestion(int) string { return "?" }

var postgresDialect = dialect{
	name:        "postgres",
	driverName:  "postgres",
	placeholder: placeholderDollar,
	upsertShortLink: func() string {
		return `INSERT INTO short_links (code, target, created_at, expires_at, password, click_count)
		         VALUES ($1, $2, $3, $4, $5, 0)
		         ON CONFLICT (code) DO UPDATE SET
		           target = EXCLUDED.target,
		           expires_at = EXCLUDED.expires_at,
		           password = EXCLUDED.password`
	},
}

var mysqlDialect = dialect{
	name:        "mysql",
	driverName:  "mysql",
	placeholder: placeholderQuestion,
	upsertShortLink: func() string {
		return `INSERT INTO short_links (code, target, created_at, expires_at, password, click_count)
		         VALUES (?, ?, ?, ?, ?, 0)
		         ON DUPLICATE KEY UPDATE
		           target = VALUES(target),
		           expires_at = VALUES(expires_at),
		           password = VALUES(password)`
	},
}

var sqliteDialect = dialect{
	name:        "sqlite",
	driverName:  "sqlite",
	placeholder: placeholderQuestion,
	upsertShortLink: func() string {
		return `INSERT INTO short_links (code, target, created_at, expires_at, password, click_count)
		         VALUES (?, ?, ?, ?, ?, 0)
		         ON CONFLICT(code) DO UPDATE SET
		           target = excluded.target,
		           expires_at = excluded.expires_at,
		           password = excluded.password`
	},
}

// Open selects a dialect from the connection string's scheme and returns a
// ready Gateway: pooled, migrated, and pinged.
func Open(dsn string, maxOpen int) (Gateway, error) {
	var d dialect
	var driverDSN string

	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		d, driverDSN = postgresDialect, dsn
	case strings.HasPrefix(dsn, "mysql://"):
		d, driverDSN = mysqlDialect, strings.TrimPrefix(dsn, "mysql://")
	case strings.HasPrefix(dsn, "sqlite://"):
		d, driverDSN = sqliteDialect, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "file:"):
		d, driverDSN = sqliteDialect, dsn
	default:
		return nil, fmt.Errorf("storage: unrecognized DSN prefix in %q", dsn)
	}

	db, err := sql.Open(d.driverName, driverDSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", d.name, err)
	}

	pool := DefaultPoolConfig(maxOpen)
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MinOpen)
	db.SetConnMaxIdleTime(pool.IdleTimeout)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	if d.name == "sqlite" {
		if err := applySQLitePragmas(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", d.name, err)
	}

	gw := &sqlGateway{db: db, dialect: d}
	if err := gw.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate %s: %w", d.name, err)
	}
	return gw, nil
}

// applySQLitePragmas sets the WAL journal mode, NORMAL synchronous level,
// a 64MiB page cache and a 512MiB mmap size.
func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-65536",
		"PRAGMA mmap_size=536870912",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("storage: apply %q: %w", p, err)
		}
	}
	return nil
}

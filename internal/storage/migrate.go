package storage

import (
	"fmt"

	"github.com/shortlinker/shortlinker/internal/storage/migrate"
)

// migrate applies every pending migration for the gateway's dialect,
// tracked in a schema_migrations table so re-running Open against an
// already-migrated database is a no-op.
func (g *sqlGateway) migrate() error {
	createTracking := `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL)`
	if _, err := g.db.Exec(createTracking); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := g.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()

	migrations, err := migrate.Load(g.dialect.name)
	if err != nil {
		return err
	}

	insertTracking := g.rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`)
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		tx, err := g.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(insertTracking, m.Version, m.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

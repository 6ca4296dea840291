// Package migrate embeds the versioned SQL migration files for each
// dialect and exposes them for sqlGateway.migrate to apply in order.
package migrate

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed sql/postgres/*.sql sql/mysql/*.sql sql/sqlite/*.sql
var files embed.FS

// Migration is one numbered, named SQL file for a dialect.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Load returns every migration for the given dialect ("postgres", "mysql",
// "sqlite"), ordered by version. File names are "NNN_description.sql".
func Load(dialectName string) ([]Migration, error) {
	dir := "sql/" + dialectName
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read %s: %w", dir, err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var version int
		var name string
		if _, err := fmt.Sscanf(e.Name(), "%d_%s", &version, &name); err != nil {
			return nil, fmt.Errorf("migrate: malformed migration filename %q: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(files, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s/%s: %w", dir, e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: e.Name(), SQL: string(content)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindPassesThroughQuestionMarkDialects(t *testing.T) {
	g := &sqlGateway{dialect: mysqlDialect}
	query := "SELECT * FROM short_links WHERE code = ? AND target = ?"
	assert.Equal(t, query, g.rebind(query))

	g.dialect = sqliteDialect
	assert.Equal(t, query, g.rebind(query))
}

func TestRebindConvertsToDollarPlaceholdersForPostgres(t *testing.T) {
	g := &sqlGateway{dialect: postgresDialect}
	got := g.rebind("SELECT * FROM short_links WHERE code = ? AND target = ?")
	assert.Equal(t, "SELECT * FROM short_links WHERE code = $1 AND target = $2", got)
}

func TestPlaceholderFunctions(t *testing.T) {
	assert.Equal(t, "$3", placeholderDollar(3))
	assert.Equal(t, "?", placeholderQuestion(3))
}

func TestUpsertShortLinkStatementsForAllThreeDialects(t *testing.T) {
	for _, d := range []dialect{postgresDialect, mysqlDialect, sqliteDialect} {
		stmt := d.upsertShortLink()
		assert.Contains(t, stmt, "short_links")
		assert.Contains(t, stmt, "target")
	}
}

package migrations

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	data, err := FS.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsAreEmbeddedAndOrdered(t *testing.T) {
	entries, err := FS.ReadDir(".")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	require.NotEmpty(t, names)
	assert.True(t, sort.StringsAreSorted(names), "migration files must apply in lexical order")
	assert.Equal(t, "0001_init.up.sql", names[0])
}

// ddlFor extracts one CREATE TABLE statement from a migration file.
func ddlFor(t *testing.T, sql, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(sql, marker)
	require.GreaterOrEqual(t, start, 0, "missing DDL for %s", table)
	end := strings.Index(sql[start:], ";")
	require.Greater(t, end, 0)
	return sql[start : start+end]
}

// Cart and order lines must not be foreign-keyed to the local items table:
// with a remote catalog configured, they reference items this database never
// stores, and an FK would fail every add-to-cart for a remotely-valid item.
func TestLineTablesNotCoupledToLocalCatalog(t *testing.T) {
	sql := readMigration(t, "0001_init.up.sql")

	assert.NotContains(t, ddlFor(t, sql, "cart_items"), "REFERENCES items")
	assert.NotContains(t, ddlFor(t, sql, "order_items"), "REFERENCES items")
}

func TestSingleActiveSessionIndex(t *testing.T) {
	sql := readMigration(t, "0001_init.up.sql")

	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS sessions_one_active_per_account")
	assert.Contains(t, sql, "ON sessions (account_id) WHERE revoked_at IS NULL")
}

func TestSeedItemsAreIdempotent(t *testing.T) {
	sql := readMigration(t, "0002_seed_items.up.sql")

	assert.Contains(t, sql, "ON CONFLICT (id) DO NOTHING")
}

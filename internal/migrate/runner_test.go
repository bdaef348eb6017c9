package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/homebase-sh/homebase/internal/logging"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func appliedMigrations(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT migration_name FROM " + BookkeepingTable + " ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestApply_MissingDirIsNoOp(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(logging.Discard())

	err := r.Apply(context.Background(), db, filepath.Join(t.TempDir(), "absent"))
	assert.NoError(t, err)
}

func TestApply_Idempotent(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	r := NewRunner(logging.Discard())

	writeMigration(t, dir, "0001_widgets.sql",
		"CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);")

	require.NoError(t, r.Apply(context.Background(), db, dir))
	require.NoError(t, r.Apply(context.Background(), db, dir))

	names := appliedMigrations(t, db)
	assert.Equal(t, []string{"0001_widgets.sql"}, names,
		"bookkeeping table must record each file exactly once")

	// Table still usable after the second run.
	_, err := db.Exec("INSERT INTO widgets (name) VALUES ('a')")
	assert.NoError(t, err)
}

func TestApply_FilenameOrder(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	r := NewRunner(logging.Discard())

	// Written out of order; lexicographic filename order must win.
	writeMigration(t, dir, "0010_c.sql", "INSERT INTO log (entry) VALUES ('c');")
	writeMigration(t, dir, "0001_a.sql", "CREATE TABLE log (id INTEGER PRIMARY KEY AUTOINCREMENT, entry TEXT);")
	writeMigration(t, dir, "0002_b.sql", "INSERT INTO log (entry) VALUES ('b');")

	require.NoError(t, r.Apply(context.Background(), db, dir))

	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql", "0010_c.sql"}, appliedMigrations(t, db))

	rows, err := db.Query("SELECT entry FROM log ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	var entries []string
	for rows.Next() {
		var e string
		require.NoError(t, rows.Scan(&e))
		entries = append(entries, e)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"b", "c"}, entries)
}

func TestApply_StatementBreakpointSplit(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	r := NewRunner(logging.Discard())

	writeMigration(t, dir, "0001_multi.sql",
		"CREATE TABLE a (id INTEGER);\n"+StatementBreakpoint+"\nCREATE TABLE b (id INTEGER);")

	require.NoError(t, r.Apply(context.Background(), db, dir))

	_, err := db.Exec("INSERT INTO a (id) VALUES (1)")
	assert.NoError(t, err)
	_, err = db.Exec("INSERT INTO b (id) VALUES (1)")
	assert.NoError(t, err)
}

func TestApply_AtomicPerFile(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	r := NewRunner(logging.Discard())

	writeMigration(t, dir, "0001_bad.sql",
		"CREATE TABLE good (id INTEGER);\n"+StatementBreakpoint+"\nTHIS IS NOT SQL;")

	err := r.Apply(context.Background(), db, dir)
	require.Error(t, err, "a failing statement must abort the run")

	// Neither statement's effect is visible and the file is not recorded.
	_, err = db.Exec("INSERT INTO good (id) VALUES (1)")
	assert.Error(t, err, "first statement of the failed file must be rolled back")
	assert.Empty(t, appliedMigrations(t, db))
}

func TestApply_IgnoresNonSQLFiles(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	r := NewRunner(logging.Discard())

	writeMigration(t, dir, "0001_ok.sql", "CREATE TABLE ok (id INTEGER);")
	writeMigration(t, dir, "README.md", "not a migration")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0o755))

	require.NoError(t, r.Apply(context.Background(), db, dir))
	assert.Equal(t, []string{"0001_ok.sql"}, appliedMigrations(t, db))
}

func TestEnsureTable_Idempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(logging.Discard())

	require.NoError(t, r.EnsureTable(context.Background(), db))
	require.NoError(t, r.EnsureTable(context.Background(), db))
}

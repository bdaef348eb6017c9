// Package migrate applies ordered SQL migration files against an open
// connection, tracking applied files in a bookkeeping table so the runner
// is safe to invoke on every process start.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BookkeepingTable records which migration files have been applied. It is
// physical schema, not part of the composed application schema.
const BookkeepingTable = "__migrations"

// StatementBreakpoint separates statements within one migration file.
const StatementBreakpoint = "--> statement-breakpoint"

const migrationExt = ".sql"

// Runner applies migrations from a directory.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a migration runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// EnsureTable creates the bookkeeping table if it is absent.
func (r *Runner) EnsureTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+BookkeepingTable+` (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    migration_name TEXT UNIQUE NOT NULL,
    applied_at TEXT NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}
	return nil
}

// Apply runs every unapplied migration file in dir, in lexicographic
// filename order, one transaction per file. A missing directory is a
// no-op: a fresh deployment may have no migrations yet. Any statement
// failure rolls the file back and aborts the run.
func (r *Runner) Apply(ctx context.Context, db *sql.DB, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		r.logger.Info("no migrations directory, skipping", "dir", dir)
		return nil
	}

	if err := r.EnsureTable(ctx, db); err != nil {
		return err
	}

	files, err := listMigrationFiles(dir)
	if err != nil {
		return err
	}

	applied, err := r.appliedNames(ctx, db)
	if err != nil {
		return err
	}

	for _, name := range files {
		if applied[name] {
			r.logger.Info("migration already applied, skipping", "name", name)
			continue
		}
		if err := r.applyFile(ctx, db, dir, name); err != nil {
			return err
		}
		r.logger.Info("migration applied", "name", name)
	}
	return nil
}

// listMigrationFiles returns the .sql files in dir sorted by name.
// Filenames carry a sortable prefix, so lexicographic order is execution
// order regardless of filesystem listing order.
func listMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != migrationExt {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// appliedNames loads the set of already-applied migration names.
func (r *Runner) appliedNames(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT migration_name FROM "+BookkeepingTable)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan migration name: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// applyFile executes one migration file inside a single transaction and
// records it in the bookkeeping table. The file either fully applies and
// is recorded, or has no effect at all.
func (r *Runner) applyFile(ctx context.Context, db *sql.DB, dir, name string) error {
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(string(content), StatementBreakpoint) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+BookkeepingTable+" (migration_name, applied_at) VALUES (?, ?)",
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migrate applies the "-- migrate:up" half of every dbmate migration in dir
// that is not yet recorded in schema_migrations. It shares dbmate's
// bookkeeping table, so either tool can be used on the same database.
func (r *Repository) Migrate(ctx context.Context, dir string) ([]string, error) {
	if _, err := r.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(128) PRIMARY KEY)`); err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var applied []string
	for _, f := range files {
		version, _, _ := strings.Cut(filepath.Base(f), "_")
		var n int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version=?`, version).Scan(&n); err != nil {
			return applied, err
		}
		if n > 0 {
			continue
		}
		b, err := os.ReadFile(f)
		if err != nil {
			return applied, err
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return applied, err
		}
		if _, err := tx.ExecContext(ctx, upSection(string(b))); err != nil {
			tx.Rollback() //nolint:errcheck
			return applied, fmt.Errorf("migration %s: %w", filepath.Base(f), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			tx.Rollback() //nolint:errcheck
			return applied, err
		}
		if err := tx.Commit(); err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}
	return applied, nil
}

func upSection(script string) string {
	_, up, ok := strings.Cut(script, "-- migrate:up")
	if !ok {
		up = script
	}
	up, _, _ = strings.Cut(up, "-- migrate:down")
	return up
}

// Package migrate applies the embedded SQL migrations to Postgres. Each file
// runs once, in name order, inside its own transaction.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/Skotchmaster/shop_api/pkg/logging"
)

//go:embed migrations/*.sql
var files embed.FS

const (
	table   = "schema_migrations"
	lockKey = 727_001
)

type Migration struct {
	Name string
	SQL  string
}

// Load returns every embedded migration sorted by name.
func Load() ([]Migration, error) {
	return load(files)
}

func load(fsys fs.FS) ([]Migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{
			Name: strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql"),
			SQL:  string(body),
		})
	}
	return out, nil
}

// Pending filters out migrations already recorded as applied.
func Pending(all []Migration, applied map[string]bool) []Migration {
	out := make([]Migration, 0, len(all))
	for _, m := range all {
		if !applied[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

// Run applies pending migrations and returns their names. A Postgres advisory
// lock keeps concurrent runs from racing.
func Run(ctx context.Context, db *sql.DB) ([]string, error) {
	l := logging.FromContext(ctx).With("component", "migrate")

	all, err := Load()
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
	}()

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, pq.QuoteIdentifier(table))
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}

	applied, err := appliedNames(ctx, conn)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, m := range Pending(all, applied) {
		if err := apply(ctx, conn, m); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				l.Error("migration_failed", "name", m.Name, "code", string(pqErr.Code), "detail", pqErr.Detail, "error", err)
			}
			return done, fmt.Errorf("migration %s: %w", m.Name, err)
		}
		l.Info("migration_applied", "name", m.Name)
		done = append(done, m.Name)
	}
	return done, nil
}

func appliedNames(ctx context.Context, conn *sql.Conn) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s`, pq.QuoteIdentifier(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func apply(ctx context.Context, conn *sql.Conn, m Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	insert := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1)`, pq.QuoteIdentifier(table))
	if _, err := tx.ExecContext(ctx, insert, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}

// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/stockfolio/migrations"
)

// Dialect selects the migration directory and SQL flavour.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Up runs all pending migrations for dialect against db and returns how many were applied.
func Up(ctx context.Context, db *sql.DB, d Dialect) (int, error) {
	var gd goose.Dialect
	switch d {
	case Postgres:
		gd = goose.DialectPostgres
	case SQLite:
		gd = goose.DialectSQLite3
	default:
		return 0, fmt.Errorf("migrate: unknown dialect %q", d)
	}
	sub, err := fs.Sub(migrations.FS, string(d))
	if err != nil {
		return 0, err
	}
	p, err := goose.NewProvider(gd, db, sub)
	if err != nil {
		return 0, fmt.Errorf("migrate: provider: %w", err)
	}
	res, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: up: %w", err)
	}
	return len(res), nil
}

// UpPostgres opens dsn with the pgx stdlib driver and migrates it.
func UpPostgres(ctx context.Context, dsn string) (int, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return Up(ctx, db, Postgres)
}

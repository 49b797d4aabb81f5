// Package sqlite contains embedded SQLite implementations of repository interfaces,
// used for single-node deployments and end-to-end tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/migrate"
)

// DB is a migrated SQLite database.
type DB struct {
	SQL *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database file at path and applies migrations.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := migrate.Up(ctx, db, migrate.SQLite); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{SQL: db, now: time.Now}, nil
}

// Ping checks the database handle.
func (db *DB) Ping(ctx context.Context) error { return db.SQL.PingContext(ctx) }

// Close closes the database.
func (db *DB) Close() error { return db.SQL.Close() }

func (db *DB) nowMillis() int64 { return db.now().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// accountConflict maps a UNIQUE failure on users to the matching sentinel.
// SQLite reports the offending column in the message ("users.email").
func accountConflict(err error) error {
	var se *msqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return errs.ErrDuplicateUsername
	case strings.Contains(msg, "users.email"):
		return errs.ErrDuplicateEmail
	case strings.Contains(msg, "UNIQUE"):
		return errs.ErrConflict
	default:
		return err
	}
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

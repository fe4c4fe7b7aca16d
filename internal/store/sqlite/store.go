// Package sqlite implements store.Store on top of modernc.org/sqlite.
//
// Write transactions are opened with BEGIN IMMEDIATE (the _txlock=immediate
// DSN option), so a transaction holds the database write lock from its first
// statement. Combined with the conditional UPDATEs on available_slots this
// serialises every read-modify-write on an event.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Elizabethomito/nearby/internal/db"
	"github.com/Elizabethomito/nearby/internal/store"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	maxBusyRetries = 8
	retryBaseDelay = 10 * time.Millisecond
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements store.Queries against a dbtx.
type queries struct {
	db dbtx
}

// Store is the SQLite store.Store.
type Store struct {
	*queries
	sqlDB *sql.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an already migrated database.
func New(sqlDB *sql.DB) *Store {
	return &Store{queries: &queries{db: sqlDB}, sqlDB: sqlDB}
}

// Open opens and migrates the database at dsn.
func Open(dsn string) (*Store, error) {
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	return New(sqlDB), nil
}

// DB exposes the underlying handle for seeding and tests.
func (s *Store) DB() *sql.DB { return s.sqlDB }

// Close closes the database.
func (s *Store) Close() error { return s.sqlDB.Close() }

// WithTx runs fn inside one transaction. When SQLite reports the database as
// busy (at BEGIN, inside fn, or at COMMIT) the whole transaction is retried
// with a linear backoff; fn must therefore only touch the database.
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	waitForRetry := func(attempt int) error {
		delay := time.Duration(attempt+1) * retryBaseDelay
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || !isBusyError(err) || attempt >= maxBusyRetries {
			return err
		}
		if waitErr := waitForRetry(attempt); waitErr != nil {
			return waitErr
		}
	}
}

func (s *Store) runTx(ctx context.Context, fn func(q store.Queries) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isForeignKeyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED ||
		code == sqlite3.SQLITE_BUSY_SNAPSHOT || code == sqlite3.SQLITE_LOCKED_SHAREDCACHE
}

// notFound maps sql.ErrNoRows to store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// affected reports whether res changed at least one row.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

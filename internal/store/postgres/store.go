// Package postgres implements store.Store on PostgreSQL through GORM.
//
// Read-modify-write transactions take a row lock on the event with
// SELECT ... FOR UPDATE (LockEvent), so two joins on the same event queue
// behind each other while joins on different events run in parallel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Elizabethomito/nearby/internal/logging"
	"github.com/Elizabethomito/nearby/internal/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type queries struct {
	db *gorm.DB
}

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	*queries
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn, runs the schema migration and returns the store.
func Open(dsn string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(slogWriter{logging.OrDefault(log)}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{queries: &queries{db: db}, db: db}
	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB exposes the GORM handle, for tests.
func (s *Store) DB() *gorm.DB { return s.db }

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn inside a GORM transaction.
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&queries{db: tx})
	})
}

func (s *Store) migrate() error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration statement failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// slogWriter adapts slog to GORM's logger.Writer.
type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.log.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isForeignKey(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

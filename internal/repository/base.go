// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"minisocial/internal/database"
	"minisocial/internal/models"
	"minisocial/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultStoreTimeout = 5 * time.Second

// Option configures a repository.
type Option func(*store)

// WithStoreTimeout bounds every call made through the repository.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// store holds what every repository needs: the primary connection and the
// per-call timeout.
type store struct {
	db      *gorm.DB
	timeout time.Duration
}

func newStore(db *gorm.DB, opts []Option) store {
	s := store{db: db, timeout: defaultStoreTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// bound derives the per-call context and starts the latency timer. Callers
// defer the returned func.
func (s store) bound(ctx context.Context, op string) (context.Context, func()) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	done := observability.TrackStore(op)
	return ctx, func() {
		done()
		cancel()
	}
}

// reader returns the read replica when one is attached.
func (s store) reader(ctx context.Context) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// lockForUpdate row-locks the selected row for the rest of the
// transaction. Postgres takes FOR NO KEY UPDATE: it serializes writers of
// the row but still lets other transactions insert rows that reference it,
// whose foreign key checks take FOR KEY SHARE. SQLite drops the clause and
// serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	strength := clause.LockingStrengthUpdate
	if tx.Dialector.Name() == "postgres" {
		strength = lockingStrengthNoKeyUpdate
	}
	return tx.Clauses(clause.Locking{Strength: strength})
}

const lockingStrengthNoKeyUpdate = "NO KEY UPDATE"

// storeError classifies a database error. AppErrors pass through, anything
// else (driver failure, deadline, cancellation) is StorageUnavailable.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	observability.StoreErrors.WithLabelValues(op).Inc()
	return models.NewStorageUnavailableError(err)
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

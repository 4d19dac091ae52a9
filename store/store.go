// Package store implements the corpus annotation storage engine over a
// single-file SQLite database.
//
// The hierarchy is corpus → document → sentence → {token, concept, tag},
// with a many-to-many link layer (cwl) connecting concepts to the tokens
// they span, and key-value metadata attachable at global, document, and
// corpus scope.
//
// Every write path enforces referential integrity and uniqueness before
// committing, and structural deletes cascade explicitly inside a single
// transaction so no orphan rows survive. Failures are reported through the
// sentinel errors in the errors package: ErrDuplicateKey,
// ErrDanglingReference, ErrNotFound, and ErrTransactionConflict.
package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/neocl/ttlstore/db"
	"github.com/neocl/ttlstore/errors"
)

// Store is the storage engine. It is safe for concurrent readers; structural
// writes are serialized by SQLite's single-writer discipline (WAL mode).
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New creates a store over an already-opened, already-migrated database.
// A nil logger disables logging.
func New(sqlDB *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		db:     sqlDB,
		logger: logger,
	}
}

// Open opens (creating if necessary) the corpus database at path, applies
// pending migrations, and returns a store over it.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	sqlDB, err := db.Open(path, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "open corpus database %s", path)
	}
	if err := db.Migrate(sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, errors.Wrapf(err, "migrate corpus database %s", path)
	}
	return New(sqlDB, logger), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database for converters that need read-only
// joins beyond the query surface here. Converters must not bypass the
// integrity layer for writes.
func (s *Store) DB() *sql.DB {
	return s.db
}

// begin starts a structural write transaction.
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, db.Translate(err)
	}
	return tx, nil
}

// exists runs an EXISTS query with the given arguments.
func (s *Store) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, db.Translate(err)
	}
	return found, nil
}

// nullable converts an empty string to NULL for storage.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// text unwraps a nullable column into a string.
func text(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}

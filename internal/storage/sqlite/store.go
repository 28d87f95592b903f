// Package sqlite is the default storage backend: a pure-Go SQLite database
// (modernc.org/sqlite, no cgo) opened in WAL mode, implementing all five
// repository interfaces against one schema. Connections are drawn from an
// internal/connections.Pool wrapping database/sql's own pool, so every
// repository method's checkout honors the same timeout semantics the
// in-memory backend does.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hippos-ai/hippos/internal/connections"
)

// Store owns the database handle and the connection pool repositories
// checkout from before running a query.
type Store struct {
	db   *sql.DB
	pool *connections.Pool[*sql.DB]
}

// Open opens (creating if necessary) the SQLite database at dsn, enables WAL
// mode and a busy timeout, and applies the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", dsn, err)
	}

	// SQLite allows exactly one writer at a time; a single open connection
	// serializes writes through database/sql itself, and WAL mode lets
	// concurrent readers proceed without blocking that writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: applying schema: %w", err)
	}

	return &Store{db: db, pool: connections.NewPool([]*sql.DB{db})}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// conn checks a *sql.DB out of the pool, honoring deadline. Since the pool
// holds exactly one entry (SQLite's single-writer constraint), this mainly
// serializes callers under the same timeout semantics the other backends
// use rather than providing real parallelism. database/sql is also capped
// at one open connection (SetMaxOpenConns(1)), so queries through a Store
// run one at a time.
func (s *Store) conn(ctx context.Context) (*sql.DB, func(), error) {
	db, err := s.pool.Checkout(ctx, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { s.pool.Return(db) }, nil
}

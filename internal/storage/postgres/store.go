// Package postgres is the Postgres storage backend: lib/pq over
// database/sql, with an optional pgvector-backed VectorIndex for
// deployments that want native in-database vector search instead of the
// brute-force cosine index in internal/index.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/hippos-ai/hippos/internal/connections"
)

// Store owns the database handle and the pgvector-availability flag every
// repository method and the VectorIndex consult.
type Store struct {
	db                *sql.DB
	pool              *connections.Pool[*sql.DB]
	pgvectorAvailable bool
}

// Open connects to dsn, applies the schema, and probes for the pgvector
// extension, falling back to vector-search-disabled rather than failing
// startup when the extension is not installed.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: applying schema: %w", err)
	}

	// Every pool entry is the same *sql.DB, which is safe for concurrent use;
	// the pool admits as many simultaneous checkouts as SetMaxOpenConns.
	handles := make([]*sql.DB, 25)
	for i := range handles {
		handles[i] = db
	}
	s := &Store{db: db, pool: connections.NewPool(handles)}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available, vector search disabled: %v", err)
	} else if _, err := db.Exec(SchemaPgvector); err != nil {
		log.Printf("postgres: pgvector column migration failed, vector search disabled: %v", err)
	} else {
		s.pgvectorAvailable = true
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PgvectorAvailable reports whether PgvectorIndex can be used against this
// Store; false means the extension was not installed when Open ran.
func (s *Store) PgvectorAvailable() bool {
	return s.pgvectorAvailable
}

// conn checks out the pooled handle, same timeout contract as the other
// backends. database/sql's own internal pool (SetMaxOpenConns) is what
// provides real connection-level concurrency here; this checkout exists so
// callers are backend-agnostic about the timeout semantics.
func (s *Store) conn(ctx context.Context) (*sql.DB, func(), error) {
	db, err := s.pool.Checkout(ctx, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { s.pool.Return(db) }, nil
}

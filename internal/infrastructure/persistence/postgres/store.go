// Package postgres implements the persistence adapter (spec §4.A) against
// PostgreSQL: transactional row-level locking with SKIP LOCKED semantics
// for the job queue's atomic claim, and plain CRUD for pipeline runs.
//
// The teacher's coordinator.go drove its queries through sqlc-generated
// code (sqlcgen.Queries); that generator cannot run as part of this
// exercise, so Store issues hand-written SQL directly over the same
// pgxpool.Pool the teacher's connection.go already builds. The
// transactional shape — begin, SKIP LOCKED select, mutate, commit, with
// ownership checks on every mutation — is carried over unchanged.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed persistence adapter, implementing both
// queue.Store and pipeline.Store against the jobs and pipeline_runs
// tables created by the embedded migrations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-configured pool. Use NewStoreWithConfig (in
// connection.go) to build the pool and run migrations in one step.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying connection pool so other adapters backed
// by the same database (internal/contentstore/postgres) can share one
// pgxpool.Pool and one migration run instead of opening a second
// connection to the same instance.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Package db provides PostgreSQL access to the role corpus.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

const roleCorpusDDL = `CREATE TABLE IF NOT EXISTS role_corpus (
	id                      BIGSERIAL PRIMARY KEY,
	job_position            TEXT NOT NULL,
	relevant_skills         TEXT,
	required_qualifications TEXT,
	job_responsibilities    TEXT,
	ideal_candidate_summary TEXT,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the role_corpus table if it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, roleCorpusDDL); err != nil {
		return fmt.Errorf("failed to create role_corpus table: %w", err)
	}
	return nil
}

package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore is the durable CounterStore shared by all gateway instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the counters table if it does not exist. The goose
// migration is authoritative; this keeps ad hoc deployments working.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ratelimit_counters (
			identity      TEXT NOT NULL,
			window_bucket BIGINT NOT NULL,
			count         BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (identity, window_bucket)
		)`)
	if err != nil {
		return fmt.Errorf("migrate ratelimit_counters: %w", err)
	}
	return nil
}

// Increment upserts the counter row atomically and returns the new count.
func (s *PostgresStore) Increment(ctx context.Context, identity string, bucket int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ratelimit_counters (identity, window_bucket, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (identity, window_bucket)
		DO UPDATE SET count = ratelimit_counters.count + 1
		RETURNING count`,
		identity, bucket,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return count, nil
}

// EvictBefore deletes counters for buckets older than the given bucket.
func (s *PostgresStore) EvictBefore(ctx context.Context, bucket int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ratelimit_counters WHERE window_bucket < $1`, bucket)
	if err != nil {
		return fmt.Errorf("evict counters: %w", err)
	}
	return nil
}

package scan

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mintlabs/mintguard/internal/scoring"
)

// PostgresStore persists scan records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scans table if it does not exist. The goose migration
// is authoritative; this keeps ad hoc deployments working.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scans (
			id         TEXT PRIMARY KEY,
			mint       TEXT NOT NULL,
			score      INT NOT NULL,
			decision   TEXT NOT NULL,
			degraded   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_scans_mint ON scans (mint, created_at DESC)`)
	if err != nil {
		return fmt.Errorf("migrate scans: %w", err)
	}
	return nil
}

// Record inserts one scan record.
func (s *PostgresStore) Record(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, mint, score, decision, degraded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Mint, rec.Score, string(rec.Decision), rec.Degraded, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mint, score, decision, degraded, created_at
		FROM scans ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

// ListByMint returns the most recent records for one mint, newest first.
func (s *PostgresStore) ListByMint(ctx context.Context, mint string, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mint, score, decision, degraded, created_at
		FROM scans WHERE mint = $1 ORDER BY created_at DESC LIMIT $2`, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("list scans by mint: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]*Record, error) {
	var out []*Record
	for rows.Next() {
		var rec Record
		var decision string
		if err := rows.Scan(&rec.ID, &rec.Mint, &rec.Score, &decision, &rec.Degraded, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.Decision = scoring.Level(decision)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

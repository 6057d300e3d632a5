package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps reports in PostgreSQL with the full report as a JSONB payload.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to databaseURL and creates the reports table if needed.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Batch runs write at most one report per worker at a time.
	config.MaxConns = 8
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sketch_reports (
		id UUID PRIMARY KEY,
		sketch TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		final_candidates TEXT,
		error TEXT,
		payload JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sketch_reports_sketch ON sketch_reports(sketch);
	CREATE INDEX IF NOT EXISTS idx_sketch_reports_started_at ON sketch_reports(started_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Save inserts r, replacing a report with the same id.
func (s *PGStore) Save(ctx context.Context, r *Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	var final *string
	if r.FinalCandidates != "" {
		final = &r.FinalCandidates
	}

	query := `
		INSERT INTO sketch_reports (id, sketch, started_at, final_candidates, error, payload)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (id) DO UPDATE SET
			final_candidates = EXCLUDED.final_candidates,
			error = EXCLUDED.error,
			payload = EXCLUDED.payload
	`
	if _, err := s.pool.Exec(ctx, query, r.ID, r.Sketch, r.StartedAt, final, r.Error, payload); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Get retrieves a report by id.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM sketch_reports WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// List returns every report, oldest first.
func (s *PGStore) List(ctx context.Context) ([]*Report, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM sketch_reports ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]*Report, 0, len(payloads))
	for _, p := range payloads {
		var r Report
		if err := json.Unmarshal(p, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

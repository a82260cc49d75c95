// Package postgres keeps progress records in PostgreSQL for deployments where
// several engine replicas share one progress store.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playperu/vrquest/internal/quest"
)

var _ quest.ProgressStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the progress table and its indexes. Every statement
// is IF NOT EXISTS, so it is safe to run on each start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS progress_records (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    tour_id      TEXT NOT NULL,
    poi_id       TEXT NOT NULL,
    points       INTEGER NOT NULL CHECK (points >= 0),
    outcome      TEXT NOT NULL CHECK (outcome IN ('succeeded', 'failed', 'acknowledged')),
    metadata     JSONB NOT NULL DEFAULT '{}',
    completed_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_progress_terminal
    ON progress_records (user_id, poi_id)
    WHERE outcome IN ('succeeded', 'acknowledged');

CREATE INDEX IF NOT EXISTS idx_progress_user ON progress_records (user_id, tour_id, completed_at);
CREATE INDEX IF NOT EXISTS idx_progress_tour ON progress_records (tour_id, completed_at);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, quest.ErrStoreUnavailable, err)
}

// Append stores r. A second terminal record for the same (user, poi) hits
// the partial unique index and is reported as ErrAlreadyResolved.
func (s *Store) Append(ctx context.Context, r quest.Record) error {
	meta := r.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO progress_records (id, user_id, tour_id, poi_id, points, outcome, metadata, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`, r.ID, r.UserID, r.TourID, r.POIID, r.Points, string(r.Outcome), meta, r.CompletedAt.UTC())
	if err != nil {
		return unavailable("appending record", err)
	}
	if tag.RowsAffected() == 0 && r.Outcome.Terminal() {
		return quest.ErrAlreadyResolved
	}
	return nil
}

const recordColumns = `id, user_id, tour_id, poi_id, points, outcome, metadata, completed_at`

func (s *Store) ListForUser(ctx context.Context, userID, tourID string) ([]quest.Record, error) {
	if tourID == "" {
		return s.query(ctx, `SELECT `+recordColumns+` FROM progress_records
			WHERE user_id = $1 ORDER BY completed_at, id`, userID)
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM progress_records
		WHERE user_id = $1 AND tour_id = $2 ORDER BY completed_at, id`, userID, tourID)
}

func (s *Store) ListRecords(ctx context.Context, tourID string) ([]quest.Record, error) {
	if tourID == "" {
		return s.query(ctx, `SELECT `+recordColumns+` FROM progress_records ORDER BY completed_at, id`)
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM progress_records
		WHERE tour_id = $1 ORDER BY completed_at, id`, tourID)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]quest.Record, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable("listing records", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (quest.Record, error) {
		var r quest.Record
		var outcome string
		err := row.Scan(&r.ID, &r.UserID, &r.TourID, &r.POIID, &r.Points, &outcome, &r.Metadata, &r.CompletedAt)
		r.Outcome = quest.Outcome(outcome)
		r.CompletedAt = r.CompletedAt.UTC()
		return r, err
	})
	if err != nil {
		return nil, unavailable("scanning records", err)
	}
	return records, nil
}

// Package sqlite stores the tour catalog and progress records in SQLite.
// The schema comes from internal/migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/vrquest/internal/catalog"
	"github.com/playperu/vrquest/internal/quest"
)

// timeLayout has a fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

var (
	_ quest.Catalog       = (*Store)(nil)
	_ quest.ProgressStore = (*Store)(nil)
	_ catalog.Writer      = (*Store)(nil)
)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// unavailable marks driver failures so the engine can tell them apart from
// caller errors.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, quest.ErrStoreUnavailable, err)
}

// --- catalog ---

const tourColumns = `id, name, city, description, cover_image, active, competition_start, competition_end`

type scanner interface {
	Scan(dest ...any) error
}

func scanTour(row scanner) (quest.Tour, error) {
	var t quest.Tour
	var start, end sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.City, &t.Description, &t.CoverImage, &t.Active, &start, &end); err != nil {
		return quest.Tour{}, err
	}
	var err error
	if t.CompetitionStart, err = timePtr(start); err != nil {
		return quest.Tour{}, fmt.Errorf("parsing competition start: %w", err)
	}
	if t.CompetitionEnd, err = timePtr(end); err != nil {
		return quest.Tour{}, fmt.Errorf("parsing competition end: %w", err)
	}
	return t, nil
}

func (s *Store) ListTours(ctx context.Context) ([]quest.Tour, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tourColumns+` FROM tours ORDER BY created_at, id`)
	if err != nil {
		return nil, unavailable("listing tours", err)
	}
	defer rows.Close()

	var tours []quest.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tour: %w", err)
		}
		tours = append(tours, t)
	}
	return tours, rows.Err()
}

func (s *Store) Tour(ctx context.Context, tourID string) (quest.Tour, error) {
	t, err := scanTour(s.db.QueryRowContext(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = ?`, tourID))
	if errors.Is(err, sql.ErrNoRows) {
		return quest.Tour{}, fmt.Errorf("tour %q: %w", tourID, quest.ErrNotFound)
	}
	if err != nil {
		return quest.Tour{}, unavailable("reading tour", err)
	}
	return t, nil
}

func (s *Store) ListScenes(ctx context.Context, tourID string) ([]quest.Scene, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, panorama
		FROM scenes
		WHERE tour_id = ?
		ORDER BY position
	`, tourID)
	if err != nil {
		return nil, unavailable("listing scenes", err)
	}
	defer rows.Close()

	var scenes []quest.Scene
	for rows.Next() {
		var sc quest.Scene
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.Description, &sc.Panorama); err != nil {
			return nil, fmt.Errorf("scanning scene: %w", err)
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}

func (s *Store) ListPOIs(ctx context.Context, tourID string, day time.Time) ([]quest.POI, error) {
	query := `
		SELECT id, tour_id, scene_id, title, description, display_order, pitch, yaw,
		       kind, content, points, active, day, next_scene
		FROM pois
		WHERE tour_id = ?`
	args := []any{tourID}
	if !day.IsZero() {
		query += ` AND (day = '' OR day = ?)`
		args = append(args, day.UTC().Format(quest.DayLayout))
	}
	query += ` ORDER BY display_order, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("listing pois", err)
	}
	defer rows.Close()

	var pois []quest.POI
	for rows.Next() {
		var p quest.POI
		var kind, content string
		if err := rows.Scan(&p.ID, &p.TourID, &p.SceneID, &p.Title, &p.Description, &p.Order,
			&p.Position.Pitch, &p.Position.Yaw, &kind, &content, &p.Points, &p.Active, &p.Day, &p.NextScene); err != nil {
			return nil, fmt.Errorf("scanning poi: %w", err)
		}
		// A broken payload leaves Content nil; the engine reports it as
		// invalid content when the POI is used.
		if k, err := quest.ParseKind(kind); err == nil {
			var doc catalog.ContentDoc
			if err := json.Unmarshal([]byte(content), &doc); err == nil {
				p.Content, _ = doc.Decode(k)
			}
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

// PutTour inserts or replaces a tour and its scenes. Scenes missing from t
// are removed together with their POIs.
func (s *Store) PutTour(ctx context.Context, t quest.Tour) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tours (id, name, city, description, cover_image, active, competition_start, competition_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			city = excluded.city,
			description = excluded.description,
			cover_image = excluded.cover_image,
			active = excluded.active,
			competition_start = excluded.competition_start,
			competition_end = excluded.competition_end
	`, t.ID, t.Name, t.City, t.Description, t.CoverImage, t.Active, nullTime(t.CompetitionStart), nullTime(t.CompetitionEnd))
	if err != nil {
		return fmt.Errorf("upserting tour %s: %w", t.ID, err)
	}

	keep := make([]any, 0, len(t.Scenes)+1)
	keep = append(keep, t.ID)
	for i, sc := range t.Scenes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (tour_id, id, position, title, description, panorama)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (tour_id, id) DO UPDATE SET
				position = excluded.position,
				title = excluded.title,
				description = excluded.description,
				panorama = excluded.panorama
		`, t.ID, sc.ID, i, sc.Title, sc.Description, sc.Panorama)
		if err != nil {
			return fmt.Errorf("upserting scene %s: %w", sc.ID, err)
		}
		keep = append(keep, sc.ID)
	}

	del := `DELETE FROM scenes WHERE tour_id = ?`
	if len(keep) > 1 {
		del += ` AND id NOT IN (?` + strings.Repeat(",?", len(keep)-2) + `)`
	}
	if _, err := tx.ExecContext(ctx, del, keep...); err != nil {
		return fmt.Errorf("pruning scenes: %w", err)
	}

	return tx.Commit()
}

// PutPOI inserts or replaces a POI.
func (s *Store) PutPOI(ctx context.Context, p quest.POI) error {
	content, err := json.Marshal(catalog.EncodeContent(p.Content))
	if err != nil {
		return fmt.Errorf("encoding content of %s: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pois (id, tour_id, scene_id, title, description, display_order, pitch, yaw,
		                  kind, content, points, active, day, next_scene)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tour_id = excluded.tour_id,
			scene_id = excluded.scene_id,
			title = excluded.title,
			description = excluded.description,
			display_order = excluded.display_order,
			pitch = excluded.pitch,
			yaw = excluded.yaw,
			kind = excluded.kind,
			content = excluded.content,
			points = excluded.points,
			active = excluded.active,
			day = excluded.day,
			next_scene = excluded.next_scene
	`, p.ID, p.TourID, p.SceneID, p.Title, p.Description, p.Order, p.Position.Pitch, p.Position.Yaw,
		string(p.Kind()), string(content), p.Points, p.Active, p.Day, p.NextScene)
	if err != nil {
		return fmt.Errorf("upserting poi %s: %w", p.ID, err)
	}
	return nil
}

// --- progress ---

// Append stores r. The partial unique index on terminal outcomes turns a
// second earning record for the same (user, poi) into a no-op insert, which
// is reported as ErrAlreadyResolved. Re-appending a record with a known id
// is a no-op.
func (s *Store) Append(ctx context.Context, r quest.Record) error {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_records (id, user_id, tour_id, poi_id, points, outcome, metadata, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, r.ID, r.UserID, r.TourID, r.POIID, r.Points, string(r.Outcome), string(meta), formatTime(r.CompletedAt))
	if err != nil {
		return unavailable("appending record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("appending record", err)
	}
	if n == 0 && r.Outcome.Terminal() {
		return quest.ErrAlreadyResolved
	}
	return nil
}

func (s *Store) ListForUser(ctx context.Context, userID, tourID string) ([]quest.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM progress_records WHERE user_id = ?`
	args := []any{userID}
	if tourID != "" {
		query += ` AND tour_id = ?`
		args = append(args, tourID)
	}
	query += ` ORDER BY completed_at, id`
	return s.queryRecords(ctx, query, args...)
}

func (s *Store) ListRecords(ctx context.Context, tourID string) ([]quest.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM progress_records`
	var args []any
	if tourID != "" {
		query += ` WHERE tour_id = ?`
		args = append(args, tourID)
	}
	query += ` ORDER BY completed_at, id`
	return s.queryRecords(ctx, query, args...)
}

const recordColumns = `id, user_id, tour_id, poi_id, points, outcome, metadata, completed_at`

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]quest.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("listing records", err)
	}
	defer rows.Close()

	var records []quest.Record
	for rows.Next() {
		var r quest.Record
		var outcome, meta, completedAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.TourID, &r.POIID, &r.Points, &outcome, &meta, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Outcome = quest.Outcome(outcome)
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", r.ID, err)
		}
		if r.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, fmt.Errorf("parsing completed_at of %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing records", err)
	}
	return records, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

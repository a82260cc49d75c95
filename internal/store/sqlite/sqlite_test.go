package sqlite_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/playperu/vrquest/internal/catalog"
	"github.com/playperu/vrquest/internal/database"
	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/migrations"
	"github.com/playperu/vrquest/internal/quest"
	"github.com/playperu/vrquest/internal/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	// Real SQLite in-memory DB, no mocks needed.
	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return sqlite.New(db)
}

func seededStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s := newStore(t)
	if _, err := catalog.Import(context.Background(), catalog.Demo(), s); err != nil {
		t.Fatalf("importing demo: %v", err)
	}
	return s
}

var t0 = time.Date(2025, 3, 16, 17, 4, 23, 829000000, time.UTC)

func TestCatalogRoundTrip(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	tours, err := s.ListTours(ctx)
	if err != nil {
		t.Fatalf("list tours: %v", err)
	}
	if len(tours) != 1 || tours[0].ID != "oficina-demo" || !tours[0].Active {
		t.Fatalf("tours = %+v", tours)
	}

	scenes, err := s.ListScenes(ctx, "oficina-demo")
	if err != nil {
		t.Fatalf("list scenes: %v", err)
	}
	if len(scenes) != 4 || scenes[0].ID != "recepcion" || scenes[3].ID != "cafeteria" {
		t.Errorf("scenes = %+v", scenes)
	}

	pois, err := s.ListPOIs(ctx, "oficina-demo", time.Time{})
	if err != nil {
		t.Fatalf("list pois: %v", err)
	}
	if len(pois) != 7 {
		t.Fatalf("pois = %d, want 7", len(pois))
	}
	for _, p := range pois {
		if err := quest.ValidateContent(p); err != nil {
			t.Errorf("poi %s: %v", p.ID, err)
		}
		if p.ID == "cafe-especial" {
			prod, ok := p.Content.(quest.ProductContent)
			if !ok || len(prod.Benefits) != 2 || prod.ContactInfo == "" {
				t.Errorf("product content = %+v", p.Content)
			}
		}
	}

	if _, err := s.Tour(ctx, "missing"); !errors.Is(err, quest.ErrNotFound) {
		t.Errorf("missing tour err = %v, want ErrNotFound", err)
	}
}

func TestPutTourPrunesScenes(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	tour, _ := s.Tour(ctx, "oficina-demo")
	tour.Scenes, _ = s.ListScenes(ctx, "oficina-demo")
	tour.Scenes = tour.Scenes[:2]
	if err := s.PutTour(ctx, tour); err != nil {
		t.Fatalf("put tour: %v", err)
	}

	scenes, _ := s.ListScenes(ctx, "oficina-demo")
	if len(scenes) != 2 {
		t.Errorf("scenes = %d, want 2", len(scenes))
	}
	pois, _ := s.ListPOIs(ctx, "oficina-demo", time.Time{})
	for _, p := range pois {
		if p.SceneID != "recepcion" && p.SceneID != "oficina" {
			t.Errorf("poi %s kept on pruned scene %s", p.ID, p.SceneID)
		}
	}
}

func TestDailyPOIs(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	pois, _ := s.ListPOIs(ctx, "oficina-demo", time.Time{})
	daily := pois[0]
	daily.Day = "2025-03-17"
	if err := s.PutPOI(ctx, daily); err != nil {
		t.Fatalf("put poi: %v", err)
	}

	sunday, _ := s.ListPOIs(ctx, "oficina-demo", t0)
	monday, _ := s.ListPOIs(ctx, "oficina-demo", t0.Add(24*time.Hour))
	if len(sunday) != 6 || len(monday) != 7 {
		t.Errorf("sunday = %d, monday = %d, want 6 and 7", len(sunday), len(monday))
	}
}

func record(id, user, poi string, points int, outcome quest.Outcome, at time.Time) quest.Record {
	return quest.Record{
		ID: id, UserID: user, TourID: "oficina-demo", POIID: poi,
		Points: points, Outcome: outcome, CompletedAt: at,
		Metadata: map[string]string{"signal": "viewed"},
	}
}

func TestAppendAtMostOneTerminal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	steps := []struct {
		rec  quest.Record
		want error
	}{
		{record("r1", "u1", "fundacion", 0, quest.OutcomeFailed, t0), nil},
		{record("r2", "u1", "fundacion", 0, quest.OutcomeFailed, t0.Add(time.Second)), nil},
		{record("r3", "u1", "fundacion", 10, quest.OutcomeSucceeded, t0.Add(2*time.Second)), nil},
		{record("r4", "u1", "fundacion", 10, quest.OutcomeSucceeded, t0.Add(3*time.Second)), quest.ErrAlreadyResolved},
		{record("r5", "u2", "fundacion", 10, quest.OutcomeSucceeded, t0.Add(4*time.Second)), nil},
		// Same id again, e.g. a retry after an ambiguous failure.
		{record("r2", "u1", "fundacion", 0, quest.OutcomeFailed, t0.Add(time.Second)), nil},
	}
	for i, st := range steps {
		err := s.Append(ctx, st.rec)
		if !errors.Is(err, st.want) {
			t.Fatalf("step %d (%s): err = %v, want %v", i, st.rec.ID, err, st.want)
		}
	}

	records, err := s.ListForUser(ctx, "u1", "oficina-demo")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("u1 records = %d, want 3", len(records))
	}
	if records[2].ID != "r3" || records[2].Points != 10 || !records[2].CompletedAt.Equal(t0.Add(2*time.Second)) {
		t.Errorf("last record = %+v", records[2])
	}
	if records[0].Metadata["signal"] != "viewed" {
		t.Errorf("metadata = %v", records[0].Metadata)
	}
}

func TestListRecordsOrdering(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Append(ctx, record("b", "u2", "p1", 5, quest.OutcomeAcknowledged, t0.Add(time.Minute)))
	s.Append(ctx, record("a", "u1", "p1", 5, quest.OutcomeAcknowledged, t0))
	s.Append(ctx, record("c", "u1", "p2", 5, quest.OutcomeAcknowledged, t0.Add(time.Minute)))
	other := record("d", "u1", "p9", 7, quest.OutcomeAcknowledged, t0)
	other.TourID = "elsewhere"
	s.Append(ctx, other)

	records, err := s.ListRecords(ctx, "oficina-demo")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, r := range records {
		got = append(got, r.ID)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("order = %v, want [a b c]", got)
	}

	all, _ := s.ListForUser(ctx, "u1", "")
	if len(all) != 3 {
		t.Errorf("u1 across tours = %d, want 3", len(all))
	}
}

func TestEngineOnSQLite(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	e := engine.New(s, s, slog.Default(), engine.WithClock(func() time.Time { return t0 }))
	actor := quest.Actor{UserID: "u1"}

	sum, err := e.OpenSession(ctx, actor, "oficina-demo")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if sum.CurrentScene != "recepcion" {
		t.Errorf("current scene = %q, want recepcion", sum.CurrentScene)
	}

	wrong, err := e.SubmitInteraction(ctx, actor, "oficina-demo", "fundacion", quest.Interaction{Answer: "2015"})
	if err != nil || wrong.Status != engine.StatusFailed {
		t.Fatalf("wrong answer = %+v, %v", wrong, err)
	}
	right, err := e.SubmitInteraction(ctx, actor, "oficina-demo", "fundacion", quest.Interaction{Answer: "2018"})
	if err != nil || right.Status != engine.StatusResolved {
		t.Fatalf("right answer = %+v, %v", right, err)
	}

	// A fresh engine sees the same progress by replaying the store.
	fresh := engine.New(s, s, slog.Default())
	sum, err = fresh.ProgressSummary(ctx, actor, "oficina-demo")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TourPoints != 10 || len(sum.ResolvedPOIs) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	again, err := fresh.SubmitInteraction(ctx, actor, "oficina-demo", "fundacion", quest.Interaction{Answer: "2018"})
	if err != nil || again.Status != engine.StatusDuplicate {
		t.Errorf("resubmit = %+v, %v", again, err)
	}
}

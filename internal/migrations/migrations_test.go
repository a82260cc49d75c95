package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/vrquest/internal/database"
	"github.com/playperu/vrquest/internal/migrations"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %v, want 2 migrations", applied)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{"tours", "scenes", "pois", "progress_records"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	v, err := migrations.Version(ctx, db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	applied, err := migrations.Run(ctx, db)
	if err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second run applied %v", applied)
	}
}

func TestTerminalRecordIsUnique(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	insert := `INSERT INTO progress_records (id, user_id, tour_id, poi_id, points, outcome, completed_at)
		VALUES (?, 'u1', 't1', 'q1', ?, ?, '2025-03-16T17:00:00.000000000Z')`

	for _, row := range []struct {
		id      string
		points  int
		outcome string
	}{
		{"r1", 0, "failed"},
		{"r2", 0, "failed"},
		{"r3", 10, "succeeded"},
	} {
		if _, err := db.ExecContext(ctx, insert, row.id, row.points, row.outcome); err != nil {
			t.Fatalf("insert %s: %v", row.id, err)
		}
	}

	if _, err := db.ExecContext(ctx, insert, "r4", 10, "acknowledged"); err == nil {
		t.Fatal("second terminal record for the same poi was accepted")
	}
}

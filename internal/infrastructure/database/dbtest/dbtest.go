// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/smartegg/smartegg-core/internal/infrastructure/database"
	_ "github.com/smartegg/smartegg-core/migrations" // registers the schema
)

// Open returns an in-memory database with every migration applied.
// It is closed automatically when the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// SeedUser inserts a minimal user row so foreign keys are satisfied.
func SeedUser(t testing.TB, db *database.DB, id string) {
	t.Helper()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, 'x', ?, ?)`,
		id, id+"@example.com", "User "+id, now, now,
	)
	if err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
}

// SeedIncubation inserts an active incubation with default thresholds
// started at start, plus its actuator row when withActuator is set.
func SeedIncubation(t testing.TB, db *database.DB, id, userID string, start time.Time, withActuator bool) {
	t.Helper()

	ctx := context.Background()
	ts := start.UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `
		INSERT INTO incubations (id, user_id, name, number_of_eggs, start_date, expected_hatch_date, created_at, updated_at)
		VALUES (?, ?, ?, 12, ?, ?, ?, ?)`,
		id, userID, "Lote "+id, ts, start.AddDate(0, 0, 21).UTC().Format(time.RFC3339), ts, ts,
	)
	if err != nil {
		t.Fatalf("seeding incubation %s: %v", id, err)
	}

	if withActuator {
		if _, err := db.ExecContext(ctx, "INSERT INTO actuators (incubation_id, timestamp) VALUES (?, ?)", id, ts); err != nil {
			t.Fatalf("seeding actuator for %s: %v", id, err)
		}
	}
}

package incubation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartegg/smartegg-core/internal/infrastructure/database/dbtest"
)

func setupReadings(t *testing.T) *SQLiteReadingRepository {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.SeedUser(t, db, "user-1")
	dbtest.SeedIncubation(t, db, "inc-1", "user-1", fixedNow.Add(-72*time.Hour), false)

	repo := NewSQLiteReadingRepository(db.DB)
	repo.now = func() time.Time { return fixedNow }
	return repo
}

func TestInsert_Defaults(t *testing.T) {
	repo := setupReadings(t)

	rd := &Reading{IncubationID: "inc-1", Temperature: 37.4, Humidity: 52}
	if err := repo.Insert(context.Background(), rd); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if rd.ID == 0 {
		t.Error("ID not set")
	}
	if rd.WaterLevel != WaterMedium {
		t.Errorf("WaterLevel = %q, want Medio", rd.WaterLevel)
	}
	if !rd.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", rd.Timestamp, fixedNow)
	}
}

func TestInsert_UnknownIncubation(t *testing.T) {
	repo := setupReadings(t)

	err := repo.Insert(context.Background(), &Reading{IncubationID: "ghost", Temperature: 37, Humidity: 50})
	if err == nil {
		t.Fatal("Insert() expected foreign key error")
	}
}

func TestLatest_HighestIDWins(t *testing.T) {
	repo := setupReadings(t)
	ctx := context.Background()

	if _, err := repo.Latest(ctx, "inc-1"); !errors.Is(err, ErrNoReadings) {
		t.Fatalf("Latest() on empty error = %v, want ErrNoReadings", err)
	}

	// Second reading arrives with an older device timestamp.
	_ = repo.Insert(ctx, &Reading{IncubationID: "inc-1", Temperature: 37.1, Humidity: 50, Timestamp: fixedNow})
	_ = repo.Insert(ctx, &Reading{IncubationID: "inc-1", Temperature: 37.9, Humidity: 50, Timestamp: fixedNow.Add(-time.Hour)})

	latest, err := repo.Latest(ctx, "inc-1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.Temperature != 37.9 {
		t.Errorf("Latest().Temperature = %v, want 37.9", latest.Temperature)
	}
}

func TestHistory(t *testing.T) {
	repo := setupReadings(t)
	ctx := context.Background()

	for _, ago := range []time.Duration{30 * time.Hour, 5 * time.Hour, time.Hour} {
		if err := repo.Insert(ctx, &Reading{IncubationID: "inc-1", Temperature: 37.5, Humidity: 55, Timestamp: fixedNow.Add(-ago)}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := repo.History(ctx, "inc-1", 24)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("History(24) returned %d readings, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("History() should be oldest first")
	}

	for _, hours := range []int{0, -1, MaxHistoryHours + 1} {
		if _, err := repo.History(ctx, "inc-1", hours); !errors.Is(err, ErrInvalidHistoryRange) {
			t.Errorf("History(%d) error = %v, want ErrInvalidHistoryRange", hours, err)
		}
	}
}

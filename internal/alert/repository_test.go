package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/database/dbtest"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.SeedUser(t, db, "user-1")
	dbtest.SeedUser(t, db, "user-2")
	start := time.Now().Add(-48 * time.Hour)
	dbtest.SeedIncubation(t, db, "inc-1", "user-1", start, false)
	dbtest.SeedIncubation(t, db, "inc-2", "user-1", start, false)
	dbtest.SeedIncubation(t, db, "inc-3", "user-2", start, false)

	repo := NewSQLiteRepository(db.DB)
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func draft(t Type, s Severity) Draft {
	return Draft{Type: t, Severity: s, Title: string(t), Message: "m"}
}

func TestCreate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	d := Evaluate(reading(38.5, 55, incubation.WaterMedium), incubation.DefaultThresholds())[0]
	a, err := repo.Create(ctx, "inc-1", "user-1", d)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ID == 0 || a.Read {
		t.Errorf("Create() = %+v, want new unread alert with id", a)
	}

	list, err := repo.List(ctx, "user-1", Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Value == nil || *list[0].Value != "38.5" {
		t.Fatalf("List() = %+v, want stored temperature alert", list)
	}

	if _, err := repo.Create(ctx, "inc-1", "user-1", Draft{Type: "bogus", Severity: SeverityInfo, Title: "x"}); !errors.Is(err, ErrInvalidAlert) {
		t.Errorf("Create(bogus) error = %v, want ErrInvalidAlert", err)
	}
}

func TestList_Filters(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	mustCreate := func(inc, user string, d Draft) *Alert {
		t.Helper()
		a, err := repo.Create(ctx, inc, user, d)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return a
	}

	first := mustCreate("inc-1", "user-1", draft(TypeTemperature, SeverityWarning))
	mustCreate("inc-1", "user-1", draft(TypeWater, SeverityCritical))
	last := mustCreate("inc-2", "user-1", draft(TypeStage, SeverityInfo))
	mustCreate("inc-3", "user-2", draft(TypeWater, SeverityCritical))

	if _, err := repo.MarkRead(ctx, first.ID, "user-1"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	unread := false
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"unread", Filter{Read: &unread}, 2},
		{"critical", Filter{Severity: SeverityCritical}, 1},
		{"incubation", Filter{IncubationID: "inc-2"}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"other users incubation", Filter{IncubationID: "inc-3"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, "user-1", tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() returned %d alerts, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := repo.List(ctx, "user-1", Filter{})
	if all[0].ID != last.ID {
		t.Errorf("List()[0].ID = %d, want newest %d", all[0].ID, last.ID)
	}
}

func TestMarkRead_OwnerScoped(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	a, _ := repo.Create(ctx, "inc-1", "user-1", draft(TypeWater, SeverityCritical))

	if _, err := repo.MarkRead(ctx, a.ID, "user-2"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("MarkRead() by other user error = %v, want ErrAlertNotFound", err)
	}
	if _, err := repo.MarkRead(ctx, 9999, "user-1"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("MarkRead(missing) error = %v, want ErrAlertNotFound", err)
	}

	got, err := repo.MarkRead(ctx, a.ID, "user-1")
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !got.Read {
		t.Error("MarkRead() returned unread alert")
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, inc := range []string{"inc-1", "inc-1", "inc-2"} {
		if _, err := repo.Create(ctx, inc, "user-1", draft(TypeHumidity, SeverityWarning)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := repo.Create(ctx, "inc-3", "user-2", draft(TypeHumidity, SeverityWarning)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := repo.MarkAllRead(ctx, "user-1", "inc-1")
	if err != nil {
		t.Fatalf("MarkAllRead(inc-1) error = %v", err)
	}
	if n != 2 {
		t.Errorf("MarkAllRead(inc-1) = %d, want 2", n)
	}

	n, _ = repo.MarkAllRead(ctx, "user-1", "")
	if n != 1 {
		t.Errorf("MarkAllRead(all) = %d, want 1", n)
	}

	unread := false
	others, _ := repo.List(ctx, "user-2", Filter{Read: &unread})
	if len(others) != 1 {
		t.Errorf("other user's unread = %d, want 1", len(others))
	}
}

func TestRecent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for range 7 {
		if _, err := repo.Create(ctx, "inc-1", "user-1", draft(TypeGas, SeverityWarning)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := repo.Recent(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("Recent() returned %d, want 5", len(got))
	}
}

func TestHasStageAlert(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	has, err := repo.HasStageAlert(ctx, "inc-1", 2)
	if err != nil {
		t.Fatalf("HasStageAlert() error = %v", err)
	}
	if has {
		t.Fatal("HasStageAlert() = true before any alert")
	}

	d := draft(TypeStage, SeverityInfo)
	d.Value = stringPtr("2")
	if _, err := repo.Create(ctx, "inc-1", "user-1", d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if has, _ := repo.HasStageAlert(ctx, "inc-1", 2); !has {
		t.Error("HasStageAlert(2) = false after storing it")
	}
	if has, _ := repo.HasStageAlert(ctx, "inc-1", 3); has {
		t.Error("HasStageAlert(3) = true, want false")
	}
	if has, _ := repo.HasStageAlert(ctx, "inc-2", 2); has {
		t.Error("HasStageAlert on other incubation = true, want false")
	}
}

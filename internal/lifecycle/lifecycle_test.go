package lifecycle

import (
	"testing"
	"time"
)

var start = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestStage_Boundaries(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{1, 1}, {7, 1},
		{8, 2}, {14, 2},
		{15, 3}, {18, 3},
		{19, 4}, {21, 4},
		// clamped
		{0, 1}, {-3, 1}, {22, 4}, {40, 4},
	}

	for _, tt := range tests {
		if got := Stage(tt.days); got != tt.want {
			t.Errorf("Stage(%d) = %d, want %d", tt.days, got, tt.want)
		}
	}
}

func TestStage_EveryDay(t *testing.T) {
	for d := 1; d <= IncubationDays; d++ {
		var want int
		switch {
		case d <= 7:
			want = 1
		case d <= 14:
			want = 2
		case d <= 18:
			want = 3
		default:
			want = 4
		}
		if got := Stage(d); got != want {
			t.Errorf("Stage(%d) = %d, want %d", d, got, want)
		}
	}
}

func TestDaysElapsed(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"at start", start, 1},
		{"one second before day 2", start.Add(24*time.Hour - time.Second), 1},
		{"exactly one day", start.Add(24 * time.Hour), 2},
		{"ten days ago", start.Add(10 * 24 * time.Hour), 11},
		{"overdue keeps counting", start.Add(30 * 24 * time.Hour), 31},
		{"clock before start", start.Add(-48 * time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysElapsed(start, tt.now); got != tt.want {
				t.Errorf("DaysElapsed() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDerive_TenDaysAgo(t *testing.T) {
	now := time.Date(2026, 6, 20, 15, 30, 0, 0, time.UTC)
	p := Derive(now.Add(-10*24*time.Hour), now)

	// Started exactly 10 days ago: floor(10)+1.
	if p.DaysElapsed != 11 {
		t.Errorf("DaysElapsed = %d, want 11", p.DaysElapsed)
	}
	if p.Stage != StageDevelopment {
		t.Errorf("Stage = %d, want 2", p.Stage)
	}
	if p.StageName != "Desarrollo" {
		t.Errorf("StageName = %q", p.StageName)
	}
	if p.DaysRemaining != 10 {
		t.Errorf("DaysRemaining = %d, want 10", p.DaysRemaining)
	}
}

func TestDerive_Deterministic(t *testing.T) {
	now := start.Add(200 * time.Hour)
	first := Derive(start, now)
	for i := 0; i < 100; i++ {
		if got := Derive(start, now); got != first {
			t.Fatalf("Derive() not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestDerive_Overdue(t *testing.T) {
	p := Derive(start, start.Add(25*24*time.Hour))

	if !p.Overdue {
		t.Error("Overdue = false, want true")
	}
	if p.DaysRemaining != 0 {
		t.Errorf("DaysRemaining = %d, want 0", p.DaysRemaining)
	}
	if p.Percent != 100 {
		t.Errorf("Percent = %v, want 100", p.Percent)
	}
	if p.Stage != StageHatching {
		t.Errorf("Stage = %d, want 4", p.Stage)
	}
}

func TestStageName(t *testing.T) {
	want := map[int]string{0: "", 1: "Calentamiento", 2: "Desarrollo", 3: "Maduración", 4: "Eclosión", 5: ""}
	for stage, name := range want {
		if got := StageName(stage); got != name {
			t.Errorf("StageName(%d) = %q, want %q", stage, got, name)
		}
	}
}

func TestExpectedHatch(t *testing.T) {
	if got := ExpectedHatch(start); !got.Equal(start.AddDate(0, 0, 21)) {
		t.Errorf("ExpectedHatch() = %v", got)
	}
}

// Package lifecycle derives an incubation's day count and developmental
// stage from its start date.
//
// Nothing here is stored. Callers recompute on every read so the values
// never drift from the wall clock.
package lifecycle

import (
	"math"
	"time"
)

// IncubationDays is the length of a chicken incubation.
const IncubationDays = 21

const day = 24 * time.Hour

// Stage numbers.
const (
	StageWarming     = 1 // days 1-7
	StageDevelopment = 2 // days 8-14
	StageMaturation  = 3 // days 15-18
	StageHatching    = 4 // days 19-21
)

var stageNames = [...]string{
	StageWarming:     "Calentamiento",
	StageDevelopment: "Desarrollo",
	StageMaturation:  "Maduración",
	StageHatching:    "Eclosión",
}

// DaysElapsed returns the 1-indexed day of incubation at now.
//
// Day 1 covers the first 24 hours after start. The result is never below 1
// and is not capped at 21; overdue batches keep counting.
func DaysElapsed(start, now time.Time) int {
	d := int(math.Floor(float64(now.Sub(start))/float64(day))) + 1
	if d < 1 {
		return 1
	}
	return d
}

// Stage maps a day count to stage 1-4. Days outside [1,21] are clamped.
func Stage(daysElapsed int) int {
	switch d := min(max(daysElapsed, 1), IncubationDays); {
	case d <= 7:
		return StageWarming
	case d <= 14:
		return StageDevelopment
	case d <= 18:
		return StageMaturation
	default:
		return StageHatching
	}
}

// StageName returns the display name of a stage, or "" for unknown stages.
func StageName(stage int) string {
	if stage < StageWarming || stage > StageHatching {
		return ""
	}
	return stageNames[stage]
}

// Progress is the derived lifecycle view of an incubation at one instant.
type Progress struct {
	DaysElapsed   int     `json:"daysElapsed"`
	Stage         int     `json:"currentStage"`
	StageName     string  `json:"stageName"`
	DaysRemaining int     `json:"daysRemaining"`
	Percent       float64 `json:"progressPercent"`
	Overdue       bool    `json:"overdue"`
}

// Derive computes the full Progress for an incubation started at start.
func Derive(start, now time.Time) Progress {
	days := DaysElapsed(start, now)
	stage := Stage(days)

	return Progress{
		DaysElapsed:   days,
		Stage:         stage,
		StageName:     StageName(stage),
		DaysRemaining: max(IncubationDays-days, 0),
		Percent:       math.Round(float64(min(days, IncubationDays))/IncubationDays*1000) / 10,
		Overdue:       days > IncubationDays,
	}
}

// ExpectedHatch returns start plus the incubation period.
func ExpectedHatch(start time.Time) time.Time {
	return start.Add(IncubationDays * day)
}

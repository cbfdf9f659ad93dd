package incubation

import (
	"fmt"
	"strings"
	"time"

	"github.com/smartegg/smartegg-core/internal/lifecycle"
)

// Status is the lifecycle state an owner assigns to a batch.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// WaterLevel is the coarse reservoir level reported by the board.
type WaterLevel string

const (
	WaterLow    WaterLevel = "Bajo"
	WaterMedium WaterLevel = "Medio"
	WaterHigh   WaterLevel = "Alto"
)

// Valid reports whether w is a known water level.
func (w WaterLevel) Valid() bool {
	return w == WaterLow || w == WaterMedium || w == WaterHigh
}

// Default settings applied when a batch is created without them.
const (
	DefaultTempMin           = 37.0
	DefaultTempMax           = 37.8
	DefaultHumidityMin       = 50.0
	DefaultHumidityMax       = 60.0
	DefaultTurnIntervalHours = 4

	maxNameLength = 100
)

// Thresholds are the safe ranges for one incubation. Bounds are inclusive:
// a reading exactly on a bound is in range.
type Thresholds struct {
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	HumidityMin float64 `json:"humidityMin"`
	HumidityMax float64 `json:"humidityMax"`
}

// DefaultThresholds returns the thresholds used when none are supplied.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempMin:     DefaultTempMin,
		TempMax:     DefaultTempMax,
		HumidityMin: DefaultHumidityMin,
		HumidityMax: DefaultHumidityMax,
	}
}

func (t Thresholds) validate() error {
	if t.TempMin >= t.TempMax {
		return fmt.Errorf("%w: tempMin must be below tempMax", ErrInvalidIncubation)
	}
	if t.HumidityMin >= t.HumidityMax {
		return fmt.Errorf("%w: humidityMin must be below humidityMax", ErrInvalidIncubation)
	}
	if t.HumidityMin < 0 || t.HumidityMax > 100 {
		return fmt.Errorf("%w: humidity bounds must be within 0-100", ErrInvalidIncubation)
	}
	return nil
}

// Incubation is one monitored batch of eggs.
type Incubation struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	NumberOfEggs      int       `json:"numberOfEggs"`
	StartDate         time.Time `json:"startDate"`
	ExpectedHatchDate time.Time `json:"expectedHatchDate"`
	Thresholds
	TurnIntervalHours int       `json:"turnIntervalHours"`
	Status            Status    `json:"status"`
	HatchedEggs       int       `json:"hatchedEggs"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// Derived at read time.
	lifecycle.Progress
}

// derive fills the lifecycle fields for now.
func (i *Incubation) derive(now time.Time) {
	i.Progress = lifecycle.Derive(i.StartDate, now)
}

// Settings are optional overrides supplied at creation.
type Settings struct {
	TempMin           *float64 `json:"tempMin,omitempty"`
	TempMax           *float64 `json:"tempMax,omitempty"`
	HumidityMin       *float64 `json:"humidityMin,omitempty"`
	HumidityMax       *float64 `json:"humidityMax,omitempty"`
	TurnIntervalHours *int     `json:"turnIntervalHours,omitempty"`
}

// NewIncubation is the input to Create.
type NewIncubation struct {
	Name         string    `json:"name"`
	NumberOfEggs int       `json:"numberOfEggs"`
	StartDate    time.Time `json:"startDate"` // zero means now
	Notes        string    `json:"notes"`
	Settings     Settings  `json:"settings"`
}

// build turns the request into an Incubation with defaults applied.
func (n NewIncubation) build(now time.Time) (*Incubation, error) {
	if n.NumberOfEggs < 1 {
		return nil, fmt.Errorf("%w: numberOfEggs must be at least 1", ErrInvalidIncubation)
	}

	start := n.StartDate
	if start.IsZero() {
		start = now
	}
	start = start.UTC().Truncate(time.Second)

	name := strings.TrimSpace(n.Name)
	if name == "" {
		name = "Lote " + start.Format("02/01/2006")
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name exceeds %d characters", ErrInvalidIncubation, maxNameLength)
	}

	th := DefaultThresholds()
	setFloat(&th.TempMin, n.Settings.TempMin)
	setFloat(&th.TempMax, n.Settings.TempMax)
	setFloat(&th.HumidityMin, n.Settings.HumidityMin)
	setFloat(&th.HumidityMax, n.Settings.HumidityMax)
	if err := th.validate(); err != nil {
		return nil, err
	}

	turn := DefaultTurnIntervalHours
	if n.Settings.TurnIntervalHours != nil {
		turn = *n.Settings.TurnIntervalHours
	}
	if turn < 1 {
		return nil, fmt.Errorf("%w: turnIntervalHours must be at least 1", ErrInvalidIncubation)
	}

	return &Incubation{
		Name:              name,
		NumberOfEggs:      n.NumberOfEggs,
		StartDate:         start,
		ExpectedHatchDate: lifecycle.ExpectedHatch(start),
		Thresholds:        th,
		TurnIntervalHours: turn,
		Status:            StatusActive,
		Notes:             n.Notes,
	}, nil
}

// Patch is a merge-patch: nil fields keep their stored value.
type Patch struct {
	Name              *string  `json:"name,omitempty"`
	Status            *Status  `json:"status,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
	HatchedEggs       *int     `json:"hatchedEggs,omitempty"`
	TempMin           *float64 `json:"tempMin,omitempty"`
	TempMax           *float64 `json:"tempMax,omitempty"`
	HumidityMin       *float64 `json:"humidityMin,omitempty"`
	HumidityMax       *float64 `json:"humidityMax,omitempty"`
	TurnIntervalHours *int     `json:"turnIntervalHours,omitempty"`
}

// apply merges p into i and validates the result.
func (p Patch) apply(i *Incubation) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" || len(name) > maxNameLength {
			return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidIncubation, maxNameLength)
		}
		i.Name = name
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidIncubation, *p.Status)
		}
		i.Status = *p.Status
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
	if p.HatchedEggs != nil {
		i.HatchedEggs = *p.HatchedEggs
	}
	if p.TurnIntervalHours != nil {
		i.TurnIntervalHours = *p.TurnIntervalHours
	}
	setFloat(&i.TempMin, p.TempMin)
	setFloat(&i.TempMax, p.TempMax)
	setFloat(&i.HumidityMin, p.HumidityMin)
	setFloat(&i.HumidityMax, p.HumidityMax)

	if i.HatchedEggs < 0 || i.HatchedEggs > i.NumberOfEggs {
		return fmt.Errorf("%w: hatchedEggs must be between 0 and numberOfEggs", ErrInvalidIncubation)
	}
	if i.TurnIntervalHours < 1 {
		return fmt.Errorf("%w: turnIntervalHours must be at least 1", ErrInvalidIncubation)
	}
	return i.Thresholds.validate()
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// Reading is one immutable environmental sample.
type Reading struct {
	ID           int64      `json:"id"`
	IncubationID string     `json:"incubationId"`
	Timestamp    time.Time  `json:"timestamp"`
	Temperature  float64    `json:"temperature"`
	Humidity     float64    `json:"humidity"`
	GasLevel     float64    `json:"gasLevel"`
	WaterLevel   WaterLevel `json:"waterLevel"`
}

// Summary aggregates one measured quantity.
type Summary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Stats summarises an incubation's readings and alerts.
type Stats struct {
	Incubation     *Incubation `json:"incubation"`
	ReadingCount   int         `json:"readingCount"`
	Temperature    Summary     `json:"temperature"`
	Humidity       Summary     `json:"humidity"`
	AlertCount     int         `json:"alertCount"`
	UnreadAlerts   int         `json:"unreadAlerts"`
	CriticalAlerts int         `json:"criticalAlerts"`
	Last24h        []Reading   `json:"last24h"`
}

package alert

import (
	"strconv"
	"time"
)

// Type classifies what an alert is about.
type Type string

const (
	TypeTemperature Type = "temperature"
	TypeHumidity    Type = "humidity"
	TypeWater       Type = "water"
	TypeGas         Type = "gas"
	TypeStage       Type = "stage"
	TypeSystem      Type = "system"
)

// Valid reports whether t is a known alert type.
func (t Type) Valid() bool {
	switch t {
	case TypeTemperature, TypeHumidity, TypeWater, TypeGas, TypeStage, TypeSystem:
		return true
	}
	return false
}

// Severity ranks an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// Draft is an alert that has not been stored yet.
type Draft struct {
	Type     Type
	Severity Severity
	Title    string
	Message  string
	Value    *string
}

func (d Draft) validate() error {
	if !d.Type.Valid() || !d.Severity.Valid() || d.Title == "" {
		return ErrInvalidAlert
	}
	return nil
}

// Alert is a stored notice about one incubation.
type Alert struct {
	ID           int64     `json:"id"`
	IncubationID string    `json:"incubationId"`
	UserID       string    `json:"userId"`
	Type         Type      `json:"type"`
	Severity     Severity  `json:"severity"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Value        *string   `json:"value"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Read         *bool
	Severity     Severity
	IncubationID string
	Limit        int // 0 means DefaultListLimit
}

// DefaultListLimit caps List when Filter.Limit is unset.
const DefaultListLimit = 50

// FormatValue renders v with the fewest digits that round-trip,
// so 38.5 becomes "38.5" and 37 becomes "37".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stringPtr(s string) *string { return &s }

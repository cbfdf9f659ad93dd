package ingest

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math"
	"time"

	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/influxdb"
	"github.com/smartegg/smartegg-core/internal/realtime"
)

// Request is one reading as submitted by a board.
type Request struct {
	IncubationID string   `json:"incubationId"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	GasLevel     *float64 `json:"gasLevel,omitempty"`
	WaterLevel   string   `json:"waterLevel,omitempty"`
	APIKey       string   `json:"apiKey"`
}

// Result is what a successful ingest produced.
type Result struct {
	Reading incubation.Reading `json:"reading"`
	Alerts  []alert.Alert      `json:"alerts"`
}

// IncubationLookup resolves an incubation regardless of owner.
type IncubationLookup interface {
	GetByID(ctx context.Context, id string) (*incubation.Incubation, error)
}

// ReadingStore persists readings.
type ReadingStore interface {
	Insert(ctx context.Context, r *incubation.Reading) error
}

// AlertStore persists alerts.
type AlertStore interface {
	Create(ctx context.Context, incubationID, userID string, d alert.Draft) (*alert.Alert, error)
}

// Notifier receives stored alerts. Implementations must not block.
type Notifier interface {
	DispatchAlert(userID string, a alert.Alert)
}

// Telemetry records readings and alerts in a time-series store.
type Telemetry interface {
	WriteReading(r influxdb.Reading)
	WriteAlert(incubationID, alertType, severity string, at time.Time)
}

// Logger is the logging interface used by the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the collaborators a Pipeline needs. Notifier and Telemetry are
// optional.
type Deps struct {
	Incubations IncubationLookup
	Readings    ReadingStore
	Alerts      AlertStore
	Events      realtime.Publisher
	Notifier    Notifier
	Telemetry   Telemetry
}

// Pipeline ingests readings.
type Pipeline struct {
	apiKey []byte
	deps   Deps
	logger Logger
}

// NewPipeline creates a pipeline that accepts readings carrying apiKey.
func NewPipeline(apiKey string, deps Deps) *Pipeline {
	return &Pipeline{apiKey: []byte(apiKey), deps: deps, logger: noopLogger{}}
}

// SetLogger sets the logger for the pipeline.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
}

// Ingest stores one reading and the alerts it triggers.
//
// Errors: ErrUnauthorized, ErrInvalidReading, incubation.ErrIncubationNotFound,
// or a wrapped storage error, including a failure to store an alert after
// the reading was stored. Dispatch and telemetry writes are fire-and-forget
// and never fail the call.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	if len(p.apiKey) == 0 || subtle.ConstantTimeCompare([]byte(req.APIKey), p.apiKey) != 1 {
		return nil, ErrUnauthorized
	}

	reading, err := req.reading()
	if err != nil {
		return nil, err
	}

	inc, err := p.deps.Incubations.GetByID(ctx, req.IncubationID)
	if err != nil {
		return nil, err
	}

	if err := p.deps.Readings.Insert(ctx, &reading); err != nil {
		return nil, fmt.Errorf("storing reading: %w", err)
	}
	p.deps.Events.Publish(inc.ID, realtime.EventSensorUpdate, reading)
	p.recordReading(reading)

	result := &Result{Reading: reading, Alerts: []alert.Alert{}}
	for _, d := range alert.Evaluate(reading, inc.Thresholds) {
		a, err := p.deps.Alerts.Create(ctx, inc.ID, inc.UserID, d)
		if err != nil {
			return nil, fmt.Errorf("storing %s alert: %w", d.Type, err)
		}
		result.Alerts = append(result.Alerts, *a)

		p.deps.Events.Publish(inc.ID, realtime.EventNewAlert, a)
		if p.deps.Notifier != nil {
			p.deps.Notifier.DispatchAlert(inc.UserID, *a)
		}
		if p.deps.Telemetry != nil {
			p.deps.Telemetry.WriteAlert(inc.ID, string(a.Type), string(a.Severity), a.CreatedAt)
		}
	}

	p.logger.Debug("reading ingested",
		"incubation_id", inc.ID, "reading_id", reading.ID,
		"temperature", reading.Temperature, "humidity", reading.Humidity,
		"alerts", len(result.Alerts))
	return result, nil
}

func (p *Pipeline) recordReading(r incubation.Reading) {
	if p.deps.Telemetry == nil {
		return
	}
	p.deps.Telemetry.WriteReading(influxdb.Reading{
		IncubationID: r.IncubationID,
		Temperature:  r.Temperature,
		Humidity:     r.Humidity,
		GasLevel:     r.GasLevel,
		WaterLevel:   string(r.WaterLevel),
		Timestamp:    r.Timestamp,
	})
}

// reading validates req and converts it to an unsaved reading.
func (req Request) reading() (incubation.Reading, error) {
	if req.IncubationID == "" {
		return incubation.Reading{}, fmt.Errorf("%w: incubationId is required", ErrInvalidReading)
	}
	if req.Temperature == nil || req.Humidity == nil {
		return incubation.Reading{}, fmt.Errorf("%w: temperature and humidity are required", ErrInvalidReading)
	}

	r := incubation.Reading{
		IncubationID: req.IncubationID,
		Temperature:  *req.Temperature,
		Humidity:     *req.Humidity,
		WaterLevel:   incubation.WaterMedium,
	}
	if req.GasLevel != nil {
		r.GasLevel = *req.GasLevel
	}
	if req.WaterLevel != "" {
		r.WaterLevel = incubation.WaterLevel(req.WaterLevel)
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"temperature", r.Temperature},
		{"humidity", r.Humidity},
		{"gasLevel", r.GasLevel},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return incubation.Reading{}, fmt.Errorf("%w: %s must be a finite number", ErrInvalidReading, f.name)
		}
	}
	if !r.WaterLevel.Valid() {
		return incubation.Reading{}, fmt.Errorf("%w: waterLevel must be Bajo, Medio or Alto", ErrInvalidReading)
	}
	return r, nil
}

package actuator

import (
	"context"

	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/influxdb"
	"github.com/smartegg/smartegg-core/internal/realtime"
)

// Notifier receives egg-turn notices. Implementations must not block.
type Notifier interface {
	DispatchEggTurn(userID, incubationID, incubationName string, count int)
}

// Telemetry records actuator snapshots.
type Telemetry interface {
	WriteActuator(s influxdb.ActuatorSnapshot)
}

// Logger is the logging interface used by the service.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Service applies actuator changes and announces them.
//
// Callers resolve and authorise the incubation first; the service trusts
// the incubation it is given.
type Service struct {
	repo      Repository
	events    realtime.Publisher
	notifier  Notifier
	telemetry Telemetry
	logger    Logger
}

// NewService creates an actuator service publishing on events.
func NewService(repo Repository, events realtime.Publisher) *Service {
	return &Service{repo: repo, events: events, logger: noopLogger{}}
}

// SetNotifier sets the receiver of egg-turn notices.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetTelemetry sets the actuator snapshot sink.
func (s *Service) SetTelemetry(t Telemetry) {
	s.telemetry = t
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Get returns the incubation's actuator state, creating it if absent.
func (s *Service) Get(ctx context.Context, inc *incubation.Incubation) (*Actuator, error) {
	return s.repo.Get(ctx, inc.ID)
}

// Update merge-patches the actuator and publishes actuator-update with the
// full resulting state.
func (s *Service) Update(ctx context.Context, inc *incubation.Incubation, p Patch) (*Actuator, error) {
	a, err := s.repo.Update(ctx, inc.ID, p)
	if err != nil {
		return nil, err
	}

	s.events.Publish(inc.ID, realtime.EventActuatorUpdate, a)
	s.record(a)
	s.logger.Info("actuator updated", "incubation_id", inc.ID,
		"heater", a.HeaterActive, "humidifier", a.HumidifierActive,
		"ventilation", a.VentilationActive, "manual", a.ManualMode)
	return a, nil
}

// TurnEggs counts one turn regardless of manual mode, publishes egg-turned
// and notifies the owner.
func (s *Service) TurnEggs(ctx context.Context, inc *incubation.Incubation) (*Actuator, error) {
	a, err := s.repo.TurnEggs(ctx, inc.ID)
	if err != nil {
		return nil, err
	}

	turn := Turn{Count: a.EggTurnCount}
	if a.LastEggTurn != nil {
		turn.Timestamp = *a.LastEggTurn
	}
	s.events.Publish(inc.ID, realtime.EventEggTurned, turn)
	s.record(a)

	if s.notifier != nil {
		s.notifier.DispatchEggTurn(inc.UserID, inc.ID, inc.Name, a.EggTurnCount)
	}
	s.logger.Info("eggs turned", "incubation_id", inc.ID, "count", a.EggTurnCount)
	return a, nil
}

func (s *Service) record(a *Actuator) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.WriteActuator(influxdb.ActuatorSnapshot{
		IncubationID:      a.IncubationID,
		HeaterActive:      a.HeaterActive,
		HumidifierActive:  a.HumidifierActive,
		VentilationActive: a.VentilationActive,
		ManualMode:        a.ManualMode,
		EggTurnCount:      a.EggTurnCount,
		Timestamp:         a.Timestamp,
	})
}

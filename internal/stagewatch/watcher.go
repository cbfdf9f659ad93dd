// Package stagewatch announces lifecycle milestones of active incubations.
//
// On every tick the watcher derives each active incubation's stage. The
// first time an incubation is seen in stage 2, 3 or 4 it stores an info
// alert for that stage; once a batch passes day 21 it stores a single
// warning that the hatch date has gone by. Stored alerts are broadcast as
// new-alert and dispatched like threshold alerts. Stage 1 is the starting
// state and is never announced.
package stagewatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/lifecycle"
	"github.com/smartegg/smartegg-core/internal/realtime"
)

// DefaultInterval is how often active incubations are checked.
const DefaultInterval = 15 * time.Minute

// overdueValue marks the hatch-date-passed alert so it is stored once.
const overdueValue = "overdue"

// Incubations lists the incubations to watch.
type Incubations interface {
	ListActive(ctx context.Context) ([]incubation.Incubation, error)
}

// Alerts stores milestone alerts and reports which already exist.
type Alerts interface {
	Create(ctx context.Context, incubationID, userID string, d alert.Draft) (*alert.Alert, error)
	HasStageAlert(ctx context.Context, incubationID string, stage int) (bool, error)
	Exists(ctx context.Context, incubationID string, t alert.Type, value string) (bool, error)
}

// Notifier receives stored alerts. Implementations must not block.
type Notifier interface {
	DispatchAlert(userID string, a alert.Alert)
}

// Logger is the logging interface used by the watcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Watcher periodically checks active incubations for milestones.
type Watcher struct {
	incubations Incubations
	alerts      Alerts
	events      realtime.Publisher
	notifier    Notifier
	interval    time.Duration
	logger      Logger
	now         func() time.Time
}

// New creates a watcher. A non-positive interval uses DefaultInterval.
func New(incubations Incubations, alerts Alerts, events realtime.Publisher, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		incubations: incubations,
		alerts:      alerts,
		events:      events,
		interval:    interval,
		logger:      noopLogger{},
		now:         time.Now,
	}
}

// SetNotifier sets the receiver of milestone alerts.
func (w *Watcher) SetNotifier(n Notifier) {
	w.notifier = n
}

// SetLogger sets the logger for the watcher.
func (w *Watcher) SetLogger(logger Logger) {
	w.logger = logger
}

// Run checks immediately and then on every interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stage watcher started", "interval", w.interval)
	for {
		if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("stage check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			w.logger.Info("stage watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Check runs one pass and returns the alerts it stored.
// A failure on one incubation does not stop the others.
func (w *Watcher) Check(ctx context.Context) ([]alert.Alert, error) {
	incs, err := w.incubations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active incubations: %w", err)
	}

	now := w.now()
	var created []alert.Alert
	for i := range incs {
		inc := &incs[i]
		alerts, err := w.checkOne(ctx, inc, lifecycle.Derive(inc.StartDate, now))
		if err != nil {
			w.logger.Error("stage check failed for incubation", "incubation_id", inc.ID, "error", err)
			continue
		}
		created = append(created, alerts...)
	}

	w.logger.Debug("stage check complete", "incubations", len(incs), "alerts", len(created))
	return created, nil
}

func (w *Watcher) checkOne(ctx context.Context, inc *incubation.Incubation, p lifecycle.Progress) ([]alert.Alert, error) {
	var created []alert.Alert

	if p.Stage > lifecycle.StageWarming {
		seen, err := w.alerts.HasStageAlert(ctx, inc.ID, p.Stage)
		if err != nil {
			return nil, err
		}
		if !seen {
			a, err := w.store(ctx, inc, stageDraft(p))
			if err != nil {
				return nil, err
			}
			created = append(created, *a)
		}
	}

	if p.Overdue {
		seen, err := w.alerts.Exists(ctx, inc.ID, alert.TypeSystem, overdueValue)
		if err != nil {
			return created, err
		}
		if !seen {
			a, err := w.store(ctx, inc, overdueDraft(p))
			if err != nil {
				return created, err
			}
			created = append(created, *a)
		}
	}

	return created, nil
}

func (w *Watcher) store(ctx context.Context, inc *incubation.Incubation, d alert.Draft) (*alert.Alert, error) {
	a, err := w.alerts.Create(ctx, inc.ID, inc.UserID, d)
	if err != nil {
		return nil, fmt.Errorf("storing %s alert: %w", d.Type, err)
	}

	w.events.Publish(inc.ID, realtime.EventNewAlert, a)
	if w.notifier != nil {
		w.notifier.DispatchAlert(inc.UserID, *a)
	}
	w.logger.Info("milestone alert created", "incubation_id", inc.ID, "type", a.Type, "title", a.Title)
	return a, nil
}

func stageDraft(p lifecycle.Progress) alert.Draft {
	value := strconv.Itoa(p.Stage)
	return alert.Draft{
		Type:     alert.TypeStage,
		Severity: alert.SeverityInfo,
		Title:    "Nueva etapa: " + p.StageName,
		Message:  fmt.Sprintf("La incubación entró en la etapa %d (%s) el día %d", p.Stage, p.StageName, p.DaysElapsed),
		Value:    &value,
	}
}

func overdueDraft(p lifecycle.Progress) alert.Draft {
	value := overdueValue
	return alert.Draft{
		Type:     alert.TypeSystem,
		Severity: alert.SeverityWarning,
		Title:    "Fecha de eclosión superada",
		Message:  fmt.Sprintf("Día %d de %d: revise la incubación y actualice su estado", p.DaysElapsed, lifecycle.IncubationDays),
		Value:    &value,
	}
}

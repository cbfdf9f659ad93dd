package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smartegg/smartegg-core/internal/alert"
)

// DefaultTimeout bounds one dispatch across all channels.
const DefaultTimeout = 10 * time.Second

// Channel delivers notices over one medium.
type Channel interface {
	// Name identifies the channel in logs.
	Name() string

	// Deliver sends n to userID. A user who has opted out or has no address
	// on this channel is not an error; Deliver returns nil.
	Deliver(ctx context.Context, userID string, n Notice) error
}

// Logger is the logging interface used by notification components.
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

// Dispatcher fans notices out to channels without blocking callers.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	logger   Logger
	now      func() time.Time

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A non-positive timeout uses DefaultTimeout.
func NewDispatcher(timeout time.Duration, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		channels: channels,
		timeout:  timeout,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// DispatchAlert notifies userID about a stored alert.
func (d *Dispatcher) DispatchAlert(userID string, a alert.Alert) {
	d.Dispatch(userID, Notice{
		Kind:         KindAlert,
		IncubationID: a.IncubationID,
		Alert:        &a,
		Timestamp:    d.now().UTC(),
	})
}

// DispatchEggTurn notifies userID that the eggs of an incubation were turned.
func (d *Dispatcher) DispatchEggTurn(userID, incubationID, incubationName string, count int) {
	d.Dispatch(userID, Notice{
		Kind:           KindEggTurn,
		IncubationID:   incubationID,
		IncubationName: incubationName,
		TurnCount:      count,
		Timestamp:      d.now().UTC(),
	})
}

// Dispatch delivers n on every channel in the background.
func (d *Dispatcher) Dispatch(userID string, n Notice) {
	if len(d.channels) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.deliver(userID, n); err != nil {
			d.logger.Warn("notification dispatch incomplete",
				"user_id", userID, "kind", n.Kind, "error", err)
		}
	}()
}

// Wait blocks until in-flight dispatches finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// deliver runs every channel concurrently and returns the first failure.
// Each failure is also logged so none are lost.
func (d *Dispatcher) deliver(userID string, n Notice) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, ch := range d.channels {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s: panic: %v", ErrDispatchFailed, ch.Name(), r)
					d.logger.Error("notification channel panicked", "channel", ch.Name(), "panic", r)
				}
			}()

			if err := ch.Deliver(ctx, userID, n); err != nil {
				d.logger.Error("notification delivery failed",
					"channel", ch.Name(), "user_id", userID, "kind", n.Kind, "error", err)
				return fmt.Errorf("%w: %s: %w", ErrDispatchFailed, ch.Name(), err)
			}
			d.logger.Debug("notification delivered", "channel", ch.Name(), "user_id", userID, "kind", n.Kind)
			return nil
		})
	}
	return g.Wait()
}

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartegg/smartegg-core/internal/alert"
)

type delivery struct {
	userID string
	notice Notice
}

type mockChannel struct {
	name  string
	err   error
	block bool
	panic bool

	mu         sync.Mutex
	deliveries []delivery
}

func (m *mockChannel) Name() string { return m.name }

func (m *mockChannel) Deliver(ctx context.Context, userID string, n Notice) error {
	if m.panic {
		panic("boom")
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	m.deliveries = append(m.deliveries, delivery{userID, n})
	m.mu.Unlock()
	return m.err
}

func (m *mockChannel) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level, msg, args})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

// dispatchErrors returns every error value logged at warn level.
func (l *recordingLogger) dispatchErrors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, e := range l.entries {
		if e.level != "warn" {
			continue
		}
		for i := 0; i+1 < len(e.args); i += 2 {
			if err, ok := e.args[i+1].(error); ok && e.args[i] == "error" {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func testAlert() alert.Alert {
	v := "38.5"
	return alert.Alert{
		ID: 1, IncubationID: "inc-1", UserID: "user-1",
		Type: alert.TypeTemperature, Severity: alert.SeverityWarning,
		Title: "Temperatura fuera de rango", Message: "Temperatura actual: 38.5°C", Value: &v,
	}
}

func TestDispatchAlert_AllChannels(t *testing.T) {
	a := &mockChannel{name: "a"}
	b := &mockChannel{name: "b"}
	d := NewDispatcher(time.Second, a, b)

	d.DispatchAlert("user-1", testAlert())
	d.Wait()

	for _, ch := range []*mockChannel{a, b} {
		if ch.count() != 1 {
			t.Fatalf("channel %s got %d deliveries, want 1", ch.name, ch.count())
		}
		got := ch.deliveries[0]
		if got.userID != "user-1" || got.notice.Kind != KindAlert || got.notice.Alert == nil {
			t.Errorf("channel %s delivery = %+v", ch.name, got)
		}
		if got.notice.IncubationID != "inc-1" {
			t.Errorf("IncubationID = %q, want inc-1", got.notice.IncubationID)
		}
	}
}

func TestDispatchEggTurn(t *testing.T) {
	ch := &mockChannel{name: "a"}
	d := NewDispatcher(time.Second, ch)

	d.DispatchEggTurn("user-1", "inc-1", "Lote A", 4)
	d.Wait()

	if ch.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", ch.count())
	}
	n := ch.deliveries[0].notice
	if n.Kind != KindEggTurn || n.IncubationName != "Lote A" || n.TurnCount != 4 {
		t.Errorf("notice = %+v", n)
	}
}

func TestDispatch_FailureIsAbsorbedAndLogged(t *testing.T) {
	failing := &mockChannel{name: "failing", err: errors.New("chat not found")}
	healthy := &mockChannel{name: "healthy"}
	logger := &recordingLogger{}

	d := NewDispatcher(time.Second, failing, healthy)
	d.SetLogger(logger)

	d.DispatchAlert("user-1", testAlert())
	d.Wait()

	if healthy.count() != 1 {
		t.Errorf("healthy channel deliveries = %d, want 1", healthy.count())
	}

	errs := logger.dispatchErrors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrDispatchFailed) {
		t.Errorf("logged errors = %v, want one ErrDispatchFailed", errs)
	}
}

func TestDispatch_PanicIsRecovered(t *testing.T) {
	d := NewDispatcher(time.Second, &mockChannel{name: "bad", panic: true})
	logger := &recordingLogger{}
	d.SetLogger(logger)

	d.DispatchAlert("user-1", testAlert())
	d.Wait()

	errs := logger.dispatchErrors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrDispatchFailed) {
		t.Errorf("logged errors = %v, want one ErrDispatchFailed", errs)
	}
}

func TestDispatch_Timeout(t *testing.T) {
	d := NewDispatcher(300*time.Millisecond, &mockChannel{name: "slow", block: true})
	logger := &recordingLogger{}
	d.SetLogger(logger)

	start := time.Now()
	d.DispatchAlert("user-1", testAlert())
	if time.Since(start) > 100*time.Millisecond {
		t.Error("DispatchAlert blocked the caller")
	}
	d.Wait()

	errs := logger.dispatchErrors()
	if len(errs) != 1 || !errors.Is(errs[0], context.DeadlineExceeded) {
		t.Errorf("logged errors = %v, want deadline exceeded", errs)
	}
}

func TestDispatch_NoChannels(t *testing.T) {
	d := NewDispatcher(0)
	d.DispatchAlert("user-1", testAlert())
	d.Wait()

	if d.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want default", d.timeout)
	}
}

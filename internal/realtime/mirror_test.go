package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type published struct {
	topic    string
	value    any
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) PublishJSON(topic string, v any, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic, v, retained})
	return f.err
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMQTTMirror_Republishes(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTTMirror(pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	b := NewBroker()
	b.AddMirror(m)
	b.Publish("inc-1", EventSensorUpdate, nil)
	b.Publish("inc-1", EventActuatorUpdate, nil)

	waitFor(t, func() bool { return len(pub.snapshot()) == 2 })

	msgs := pub.snapshot()
	if msgs[0].topic != "smartegg/incubation/inc-1/event/sensor-update" || msgs[0].retained {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].topic != "smartegg/incubation/inc-1/event/actuator-update" || !msgs[1].retained {
		t.Errorf("actuator message = %+v, want retained", msgs[1])
	}
	if e, ok := msgs[0].value.(Event); !ok || e.IncubationID != "inc-1" {
		t.Errorf("payload = %#v, want Event", msgs[0].value)
	}
}

func TestMQTTMirror_PublishErrorIsAbsorbed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := NewMQTTMirror(pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Mirror(Event{IncubationID: "inc-1", Name: EventNewAlert})
	m.Mirror(Event{IncubationID: "inc-1", Name: EventNewAlert})

	waitFor(t, func() bool { return len(pub.snapshot()) == 2 })
}

func TestMQTTMirror_DropsWhenQueueFull(t *testing.T) {
	m := NewMQTTMirror(&fakePublisher{})

	done := make(chan struct{})
	go func() {
		for range mirrorQueueSize + 10 {
			m.Mirror(Event{IncubationID: "inc-1", Name: EventSensorUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Mirror blocked with no consumer")
	}
}

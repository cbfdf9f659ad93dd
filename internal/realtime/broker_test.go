package realtime

import (
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case e := <-s.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertEmpty(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case e := <-s.Events():
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestTopic(t *testing.T) {
	if got := Topic("abc"); got != "incubation-abc" {
		t.Errorf("Topic() = %q, want incubation-abc", got)
	}
}

func TestPublish_DeliversToTopicSubscribersOnly(t *testing.T) {
	b := NewBroker()
	a := NewSubscription(8)
	other := NewSubscription(8)

	b.Subscribe(Topic("inc-1"), a)
	b.Subscribe(Topic("inc-2"), other)

	b.Publish("inc-1", EventSensorUpdate, map[string]float64{"temperature": 37.5})

	e := recv(t, a)
	if e.Name != EventSensorUpdate || e.IncubationID != "inc-1" {
		t.Errorf("event = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
	assertEmpty(t, other)
}

func TestPublish_PreservesOrder(t *testing.T) {
	b := NewBroker()
	s := NewSubscription(16)
	b.Subscribe(Topic("inc-1"), s)

	names := []string{EventSensorUpdate, EventNewAlert, EventActuatorUpdate, EventEggTurned}
	for _, n := range names {
		b.Publish("inc-1", n, nil)
	}

	for i, want := range names {
		if got := recv(t, s).Name; got != want {
			t.Errorf("event[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestPublish_NoReplay(t *testing.T) {
	b := NewBroker()
	b.Publish("inc-1", EventSensorUpdate, nil)

	s := NewSubscription(4)
	b.Subscribe(Topic("inc-1"), s)
	assertEmpty(t, s)

	b.Publish("inc-1", EventNewAlert, nil)
	if got := recv(t, s).Name; got != EventNewAlert {
		t.Errorf("event = %q, want new-alert", got)
	}
}

func TestPublish_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	slow := NewSubscription(1)
	fast := NewSubscription(16)
	b.Subscribe(Topic("inc-1"), slow)
	b.Subscribe(Topic("inc-1"), fast)

	done := make(chan struct{})
	go func() {
		for range 5 {
			b.Publish("inc-1", EventSensorUpdate, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if got := slow.Dropped(); got != 4 {
		t.Errorf("slow.Dropped() = %d, want 4", got)
	}
	if got := len(fast.Events()); got != 5 {
		t.Errorf("fast received %d events, want 5", got)
	}
}

func TestSubscribe_Idempotent(t *testing.T) {
	b := NewBroker()
	s := NewSubscription(8)
	topic := Topic("inc-1")

	if !b.Subscribe(topic, s) {
		t.Error("first Subscribe() = false")
	}
	if b.Subscribe(topic, s) {
		t.Error("second Subscribe() = true, want no-op")
	}

	b.Publish("inc-1", EventSensorUpdate, nil)
	recv(t, s)
	assertEmpty(t, s)

	if !b.Unsubscribe(topic, s) {
		t.Error("first Unsubscribe() = false")
	}
	if b.Unsubscribe(topic, s) {
		t.Error("second Unsubscribe() = true, want no-op")
	}
	if b.SubscriberCount(topic) != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount(topic))
	}

	b.Publish("inc-1", EventSensorUpdate, nil)
	assertEmpty(t, s)
}

func TestUnsubscribeAll(t *testing.T) {
	b := NewBroker()
	s := NewSubscription(8)
	keep := NewSubscription(8)

	b.Subscribe(Topic("inc-1"), s)
	b.Subscribe(Topic("inc-2"), s)
	b.Subscribe(Topic("inc-2"), keep)

	if n := b.UnsubscribeAll(s); n != 2 {
		t.Errorf("UnsubscribeAll() = %d, want 2", n)
	}
	if b.SubscriberCount(Topic("inc-2")) != 1 {
		t.Error("UnsubscribeAll() removed another subscriber")
	}
}

type recordingMirror struct {
	mu     sync.Mutex
	events []Event
}

func (m *recordingMirror) Mirror(e Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

func TestPublish_MirrorsWithoutSubscribers(t *testing.T) {
	b := NewBroker()
	m := &recordingMirror{}
	b.AddMirror(m)

	b.Publish("inc-1", EventEggTurned, map[string]int{"count": 3})

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) != 1 || m.events[0].Name != EventEggTurned {
		t.Errorf("mirror events = %+v, want one egg-turned", m.events)
	}
}

func TestPublish_Concurrent(t *testing.T) {
	b := NewBroker()
	s := NewSubscription(1000)
	b.Subscribe(Topic("inc-1"), s)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Publish("inc-1", EventSensorUpdate, nil)
			}
		}()
	}
	wg.Wait()

	if got := len(s.Events()); got != 500 {
		t.Errorf("received %d events, want 500", got)
	}
}

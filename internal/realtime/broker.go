package realtime

import (
	"sync"
	"time"
)

// Event names.
const (
	EventSensorUpdate   = "sensor-update"
	EventActuatorUpdate = "actuator-update"
	EventNewAlert       = "new-alert"
	EventEggTurned      = "egg-turned"
)

// Event is one published notification.
type Event struct {
	IncubationID string    `json:"incubationId"`
	Name         string    `json:"event"`
	Payload      any       `json:"payload"`
	Timestamp    time.Time `json:"timestamp"`
}

// Subscriber receives events for the topics it joined.
type Subscriber interface {
	// Send hands e to the subscriber without blocking.
	// It returns false when e was dropped.
	Send(e Event) bool
}

// Mirror receives every published event. Implementations must not block.
type Mirror interface {
	Mirror(e Event)
}

// Publisher is the narrow view used by services that emit events.
type Publisher interface {
	Publish(incubationID, name string, payload any)
}

// Logger is the logging interface used by the broker.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Topic returns the topic name for an incubation.
func Topic(incubationID string) string {
	return "incubation-" + incubationID
}

// Broker is a topic-per-incubation publish/subscribe hub.
// It is safe for concurrent use.
type Broker struct {
	mu      sync.RWMutex
	topics  map[string]map[Subscriber]struct{}
	mirrors []Mirror

	logger Logger
	now    func() time.Time
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]map[Subscriber]struct{}),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the broker.
func (b *Broker) SetLogger(logger Logger) {
	b.logger = logger
}

// AddMirror registers m to receive every published event.
func (b *Broker) AddMirror(m Mirror) {
	b.mu.Lock()
	b.mirrors = append(b.mirrors, m)
	b.mu.Unlock()
}

// Subscribe joins s to topic. It returns false if s was already subscribed.
func (b *Broker) Subscribe(topic string, s Subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[Subscriber]struct{})
		b.topics[topic] = subs
	}
	if _, exists := subs[s]; exists {
		return false
	}
	subs[s] = struct{}{}
	return true
}

// Unsubscribe removes s from topic. It returns false if s was not subscribed.
func (b *Broker) Unsubscribe(topic string, s Subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return false
	}
	if _, exists := subs[s]; !exists {
		return false
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	return true
}

// UnsubscribeAll removes s from every topic and returns how many it left.
func (b *Broker) UnsubscribeAll(s Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for topic, subs := range b.topics {
		if _, exists := subs[s]; exists {
			delete(subs, s)
			n++
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
	}
	return n
}

// Publish delivers an event to the incubation's subscribers and mirrors.
// It never blocks on a slow subscriber.
//
// The read lock is held across delivery so events published sequentially
// reach each subscriber in the same order.
func (b *Broker) Publish(incubationID, name string, payload any) {
	e := Event{
		IncubationID: incubationID,
		Name:         name,
		Payload:      payload,
		Timestamp:    b.now().UTC(),
	}
	topic := Topic(incubationID)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, m := range b.mirrors {
		m.Mirror(e)
	}

	subs := b.topics[topic]
	dropped := 0
	for s := range subs {
		if !s.Send(e) {
			dropped++
		}
	}

	if dropped > 0 {
		b.logger.Warn("realtime event dropped for slow subscribers",
			"topic", topic, "event", name, "dropped", dropped)
	}
	if len(subs) > 0 {
		b.logger.Debug("realtime event published", "topic", topic, "event", name, "recipients", len(subs)-dropped)
	}
}

// SubscriberCount returns the number of subscribers on topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

package realtime

import (
	"context"

	"github.com/smartegg/smartegg-core/internal/infrastructure/mqtt"
)

// mirrorQueueSize bounds events waiting to be republished over MQTT.
const mirrorQueueSize = 512

// JSONPublisher publishes a JSON-encoded value on an MQTT topic.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTMirror republishes realtime events on MQTT.
//
// Events are queued and published by Run so Publish on the broker never
// waits on the network. Actuator snapshots are retained so late
// subscribers see the current state.
type MQTTMirror struct {
	pub    JSONPublisher
	queue  chan Event
	logger Logger
}

// NewMQTTMirror creates a mirror publishing through pub.
func NewMQTTMirror(pub JSONPublisher) *MQTTMirror {
	return &MQTTMirror{
		pub:    pub,
		queue:  make(chan Event, mirrorQueueSize),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the mirror.
func (m *MQTTMirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Mirror queues e for publishing, dropping it when the queue is full.
func (m *MQTTMirror) Mirror(e Event) {
	select {
	case m.queue <- e:
	default:
		m.logger.Warn("mqtt mirror queue full, event dropped", "incubation_id", e.IncubationID, "event", e.Name)
	}
}

// Run publishes queued events until ctx is cancelled.
func (m *MQTTMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.queue:
			m.publish(e)
		}
	}
}

func (m *MQTTMirror) publish(e Event) {
	topic := mqtt.Topics{}.IncubationEvent(e.IncubationID, e.Name)
	retained := e.Name == EventActuatorUpdate

	if err := m.pub.PublishJSON(topic, e, retained); err != nil {
		m.logger.Warn("mqtt mirror publish failed", "topic", topic, "error", err)
	}
}

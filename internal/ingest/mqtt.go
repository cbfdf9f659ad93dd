package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartegg/smartegg-core/internal/infrastructure/mqtt"
)

// mqttIngestTimeout bounds the work done for one MQTT reading.
const mqttIngestTimeout = 10 * time.Second

// MQTTSubscriber is the part of the MQTT client the pipeline needs.
type MQTTSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// SubscribeMQTT routes readings published on smartegg/sensor/+/reading
// into the pipeline. The payload is the same JSON accepted over HTTP; the
// incubation id comes from the topic when the payload omits it.
func (p *Pipeline) SubscribeMQTT(sub MQTTSubscriber, qos byte) error {
	topic := mqtt.Topics{}.AllSensorReadings()
	if err := sub.Subscribe(topic, qos, p.handleMQTT); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	p.logger.Info("ingesting readings over mqtt", "topic", topic)
	return nil
}

func (p *Pipeline) handleMQTT(topic string, payload []byte) error {
	incubationID, ok := mqtt.ParseSensorTopic(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidReading, topic)
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: decoding payload: %w", ErrInvalidReading, err)
	}
	switch req.IncubationID {
	case "":
		req.IncubationID = incubationID
	case incubationID:
	default:
		return fmt.Errorf("%w: payload incubation %q does not match topic", ErrInvalidReading, req.IncubationID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mqttIngestTimeout)
	defer cancel()

	result, err := p.Ingest(ctx, req)
	if err != nil {
		return fmt.Errorf("ingesting mqtt reading for %s: %w", incubationID, err)
	}
	if len(result.Alerts) > 0 {
		p.logger.Info("mqtt reading raised alerts", "incubation_id", incubationID, "alerts", len(result.Alerts))
	}
	return nil
}

package notify

import (
	"context"

	"github.com/smartegg/smartegg-core/internal/infrastructure/mqtt"
)

// JSONPublisher publishes a JSON-encoded value on an MQTT topic.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTChannel publishes notices on smartegg/notify/{user_id}.
type MQTTChannel struct {
	pub JSONPublisher
}

// NewMQTTChannel creates an MQTT notification channel.
func NewMQTTChannel(pub JSONPublisher) *MQTTChannel {
	return &MQTTChannel{pub: pub}
}

// Name returns "mqtt".
func (c *MQTTChannel) Name() string { return "mqtt" }

// Deliver publishes n as JSON. Notices are events, so they are not retained.
func (c *MQTTChannel) Deliver(ctx context.Context, userID string, n Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.pub.PublishJSON(mqtt.Topics{}.Notify(userID), n, false)
}

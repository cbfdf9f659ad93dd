package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every SmartEgg topic.
const TopicPrefix = "smartegg"

// Topics builds SmartEgg topic names.
//
//	smartegg/sensor/{incubation_id}/reading          sensor boards -> core
//	smartegg/incubation/{incubation_id}/event/{name} core -> observers
//	smartegg/notify/{user_id}                        core -> notification bridges
//	smartegg/system/status                           core presence (retained)
type Topics struct{}

// SensorReading is where a board publishes readings for one incubation.
func (Topics) SensorReading(incubationID string) string {
	return fmt.Sprintf("%s/sensor/%s/reading", TopicPrefix, incubationID)
}

// AllSensorReadings matches every board's reading topic.
func (Topics) AllSensorReadings() string {
	return TopicPrefix + "/sensor/+/reading"
}

// IncubationEvent mirrors a realtime event (sensor-update, new-alert, ...).
func (Topics) IncubationEvent(incubationID, event string) string {
	return fmt.Sprintf("%s/incubation/%s/event/%s", TopicPrefix, incubationID, event)
}

// Notify carries notices for one user.
func (Topics) Notify(userID string) string {
	return fmt.Sprintf("%s/notify/%s", TopicPrefix, userID)
}

// SystemStatus is the retained core presence topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// ParseSensorTopic extracts the incubation id from a concrete
// smartegg/sensor/{id}/reading topic.
func ParseSensorTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "sensor" || parts[3] != "reading" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

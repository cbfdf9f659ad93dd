// Package mqtt connects SmartEgg Core to an MQTT broker.
//
// The broker is optional. When enabled it carries three flows:
//
//   - sensor boards publish readings on smartegg/sensor/{id}/reading,
//     which feed the same ingestion pipeline as POST /api/v1/sensors/data
//   - every realtime event is mirrored on smartegg/incubation/{id}/event/{name}
//   - user notices are published on smartegg/notify/{user_id}
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetLogger(logger)
package mqtt

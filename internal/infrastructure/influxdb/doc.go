// Package influxdb stores incubation telemetry in InfluxDB v2.
//
// SQLite remains the source of truth for readings and alerts; InfluxDB is an
// optional, best-effort copy for long-range dashboards. Three measurements
// are written:
//
//   - incubation_reading: temperature, humidity, gas_level
//   - incubation_alert: one point per fired alert
//   - incubation_actuator: heater/humidifier/ventilation state and turn count
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	client.WriteReading(influxdb.Reading{IncubationID: id, Temperature: 37.5})
package influxdb

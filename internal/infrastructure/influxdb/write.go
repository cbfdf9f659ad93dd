package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementReading  = "incubation_reading"
	MeasurementAlert    = "incubation_alert"
	MeasurementActuator = "incubation_actuator"
)

// Reading is one environmental sample as stored in the time-series bucket.
type Reading struct {
	IncubationID string
	Temperature  float64
	Humidity     float64
	GasLevel     float64
	WaterLevel   string
	Timestamp    time.Time
}

// WriteReading records a sensor sample. Tagged by incubation and water level
// so dashboards can group on both.
func (c *Client) WriteReading(r Reading) {
	c.writePoint(MeasurementReading,
		map[string]string{
			"incubation_id": r.IncubationID,
			"water_level":   r.WaterLevel,
		},
		map[string]any{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
			"gas_level":   r.GasLevel,
		},
		r.Timestamp,
	)
}

// WriteAlert records that an alert fired. The count field is always 1 so
// alert rates can be computed with sum().
func (c *Client) WriteAlert(incubationID, alertType, severity string, at time.Time) {
	c.writePoint(MeasurementAlert,
		map[string]string{
			"incubation_id": incubationID,
			"type":          alertType,
			"severity":      severity,
		},
		map[string]any{"count": 1},
		at,
	)
}

// ActuatorSnapshot is the actuator state recorded after every change.
type ActuatorSnapshot struct {
	IncubationID      string
	HeaterActive      bool
	HumidifierActive  bool
	VentilationActive bool
	ManualMode        bool
	EggTurnCount      int
	Timestamp         time.Time
}

// WriteActuator records actuator state so on/off duty cycles can be graphed
// next to temperature and humidity.
func (c *Client) WriteActuator(s ActuatorSnapshot) {
	c.writePoint(MeasurementActuator,
		map[string]string{"incubation_id": s.IncubationID},
		map[string]any{
			"heater":         s.HeaterActive,
			"humidifier":     s.HumidifierActive,
			"ventilation":    s.VentilationActive,
			"manual_mode":    s.ManualMode,
			"egg_turn_count": s.EggTurnCount,
		},
		s.Timestamp,
	)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if c.writer == nil || !c.IsConnected() {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
}

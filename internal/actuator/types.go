package actuator

import "time"

// Actuator is the control state of one incubation.
type Actuator struct {
	ID                int64      `json:"id"`
	IncubationID      string     `json:"incubationId"`
	HeaterActive      bool       `json:"heaterActive"`
	HumidifierActive  bool       `json:"humidifierActive"`
	VentilationActive bool       `json:"ventilationActive"`
	ManualMode        bool       `json:"manualMode"`
	EggTurnCount      int        `json:"eggTurnCount"`
	LastEggTurn       *time.Time `json:"lastEggTurn"`
	Timestamp         time.Time  `json:"timestamp"`
}

// Patch is a merge-patch: nil fields keep their stored value.
type Patch struct {
	HeaterActive      *bool `json:"heaterActive,omitempty"`
	HumidifierActive  *bool `json:"humidifierActive,omitempty"`
	VentilationActive *bool `json:"ventilationActive,omitempty"`
	ManualMode        *bool `json:"manualMode,omitempty"`
}

// Turn is the payload of an egg-turned event.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

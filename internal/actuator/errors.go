package actuator

import "errors"

// ErrActuatorNotFound is returned when an incubation has no actuator row.
var ErrActuatorNotFound = errors.New("actuator: not found")

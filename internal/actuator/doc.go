// Package actuator keeps the control state of each incubation: heater,
// humidifier and ventilation flags, the manual mode flag and the egg-turn
// counter.
//
// State changes are single SQL statements, so concurrent patches and turns
// for the same incubation never lose updates and no in-process lock is
// needed. Manual mode is advisory: it tells clients which controls the user
// may toggle. Nothing here drives the heater or ventilation from readings.
package actuator

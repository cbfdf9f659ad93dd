// Package incubation manages incubation batches and their sensor readings.
//
// An incubation is one batch of eggs with its own start date, safety
// thresholds and turning schedule. Readings are immutable samples that
// belong to exactly one incubation; deleting an incubation cascades to its
// readings, actuator row and alerts.
//
// Lifecycle fields (daysElapsed, currentStage, ...) are derived on every
// read through the lifecycle package and never stored.
package incubation

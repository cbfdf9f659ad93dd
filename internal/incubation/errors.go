package incubation

import "errors"

// Domain errors for the incubation package.
//
//	if errors.Is(err, incubation.ErrIncubationNotFound) {
//	    // 404
//	}
var (
	// ErrIncubationNotFound is returned when the id does not exist or is
	// owned by another user.
	ErrIncubationNotFound = errors.New("incubation: not found")

	// ErrInvalidIncubation is returned when create or update input fails validation.
	ErrInvalidIncubation = errors.New("incubation: invalid")

	// ErrNoReadings is returned by Latest when nothing has been ingested yet.
	ErrNoReadings = errors.New("incubation: no sensor readings")

	// ErrInvalidHistoryRange is returned when a history window is outside 1-168 hours.
	ErrInvalidHistoryRange = errors.New("incubation: history window must be 1-168 hours")
)

package alert

import "errors"

// Domain errors for alert operations.
var (
	// ErrAlertNotFound is returned when an alert does not exist or belongs
	// to another user.
	ErrAlertNotFound = errors.New("alert: not found")

	// ErrInvalidAlert is returned when a draft has an unknown type or severity.
	ErrInvalidAlert = errors.New("alert: invalid alert")
)

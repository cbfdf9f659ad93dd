package ingest

import "errors"

var (
	// ErrUnauthorized is returned when the ingest key does not match.
	ErrUnauthorized = errors.New("ingest: invalid api key")

	// ErrInvalidReading is returned when a reading has malformed values.
	ErrInvalidReading = errors.New("ingest: invalid reading")
)

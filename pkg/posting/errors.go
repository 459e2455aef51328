package posting

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimestamp is returned when date and time do not match the export layout.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrUnknownCategory is returned for a category outside goods/service.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidConfig is returned for inconsistent mapping tables or rules.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPeriod is returned for a malformed reporting period.
	ErrInvalidPeriod = errors.New("invalid period")
)

// RecordError identifies the input record that stopped the run.
type RecordError struct {
	Index int
	Row   int
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d (row %d): %v", e.Index, e.Row, e.Err)
	}
	return fmt.Sprintf("record %d (row %d) field %s: %v", e.Index, e.Row, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

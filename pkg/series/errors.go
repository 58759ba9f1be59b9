package series

import (
	"errors"
	"fmt"
)

// ErrNoDataInRange is wrapped when no row survives validation and windowing.
var ErrNoDataInRange = errors.New("no data in range")

// EmptyReason tells why a build produced no records.
type EmptyReason string

const (
	// ReasonNoValidRows means every row failed validation: the report is corrupt.
	ReasonNoValidRows EmptyReason = "no_valid_rows"

	// ReasonOutsideWindow means valid rows exist but none fall in the window.
	ReasonOutsideWindow EmptyReason = "outside_window"
)

// EmptyResultError is returned by Build when the series is empty.
type EmptyResultError struct {
	Reason    EmptyReason
	Window    Window
	RowsRead  int
	ValidRows int
}

func (e *EmptyResultError) Error() string {
	switch e.Reason {
	case ReasonOutsideWindow:
		return fmt.Sprintf("%v: %d valid rows, none within %s", ErrNoDataInRange, e.ValidRows, e.Window)
	default:
		return fmt.Sprintf("%v: none of %d rows passed validation", ErrNoDataInRange, e.RowsRead)
	}
}

// Unwrap allows errors.Is(err, ErrNoDataInRange).
func (e *EmptyResultError) Unwrap() error {
	return ErrNoDataInRange
}

// IsEmptyResult reports whether err is an empty-series condition.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrNoDataInRange)
}

package frame

import (
	"errors"
)

var (
	// ErrSlotInFlight is returned when mutating a slot whose previous
	// submission has not yet been waited on.
	ErrSlotInFlight = errors.New("frame slot is in flight")
	// ErrCapacityExceeded is returned when more instance records are
	// supplied than the capacity reserved at construction.
	ErrCapacityExceeded = errors.New("instance count exceeds reserved capacity")
)

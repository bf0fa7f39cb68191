package reservation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Not found
	ErrShowNotFound    = errors.New("show not found")
	ErrBookingNotFound = errors.New("booking not found")

	// Invalid input
	ErrInvalidSeatCount = errors.New("invalid seat count")
	ErrInvalidSeatLabel = errors.New("invalid seat label")
	ErrDuplicateSeat    = errors.New("duplicate seat in request")
	ErrMissingUser      = errors.New("user id is required")
	ErrShowStarted      = errors.New("show has already started")
	ErrInvalidPrice     = errors.New("show price out of range")

	// Conflict
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrContention      = errors.New("show is busy, try again")

	// Upstream
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
)

// SeatConflictError names the requested seats that someone else holds.
// It matches ErrSeatUnavailable with errors.Is.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats not available: %s", strings.Join(e.Seats, ", "))
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatUnavailable }

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShowNotFound) || errors.Is(err, ErrBookingNotFound)
}

// IsInvalidInput checks if error is a validation error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidSeatCount) ||
		errors.Is(err, ErrInvalidSeatLabel) ||
		errors.Is(err, ErrDuplicateSeat) ||
		errors.Is(err, ErrMissingUser) ||
		errors.Is(err, ErrShowStarted) ||
		errors.Is(err, ErrInvalidPrice)
}

// IsConflict checks if error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrSeatUnavailable) || errors.Is(err, ErrContention)
}

// IsUpstream checks if error came from an external collaborator
func IsUpstream(err error) bool {
	return errors.Is(err, ErrPaymentUnavailable)
}

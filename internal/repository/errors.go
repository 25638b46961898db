// Package repository defines the persistence layer over MySQL and the
// error values shared by its repositories.  Sentinel errors let the
// service layer and handlers distinguish failure scenarios without
// string matching: a missing row, an administratively disabled slot, a
// lease that expired or belongs to another session, and so on.
package repository

import (
	"errors"
	"fmt"
)

// ErrSlotNotFound is returned when the referenced slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when the referenced booking does not
// exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrLeaseNotFound is returned when the referenced lease does not
// exist.  An expired lease that the sweeper has already deleted
// surfaces as this error rather than ErrLeaseExpired.
var ErrLeaseNotFound = errors.New("lease not found")

// ErrServiceNotFound is returned when the referenced service does not
// exist.
var ErrServiceNotFound = errors.New("service not found")

// ErrSlotUnavailable is returned when a slot has been administratively
// disabled.  Callers should not retry.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrLeaseExpired is returned when a lease exists but its expiry has
// passed.  The caller must re-acquire.
var ErrLeaseExpired = errors.New("lease expired")

// ErrLeaseMismatch is returned when a lease exists but is owned by a
// different session, or its reserved quantity does not cover the
// requested party size.
var ErrLeaseMismatch = errors.New("lease mismatch")

// ErrInvalidStatus is returned when a reschedule targets a booking in
// a terminal status.
var ErrInvalidStatus = errors.New("booking status does not permit this operation")

// ErrCrossService is returned when a reschedule target slot belongs to
// a different service or tenant than the booking.  This is a caller
// programming error, not a capacity condition.
var ErrCrossService = errors.New("target slot belongs to a different service")

// ErrTicketConsumed is returned when a ticket token has already been
// used or invalidated.
var ErrTicketConsumed = errors.New("ticket already consumed")

// InsufficientCapacityError is returned when a requested quantity
// exceeds a slot's effective availability.  It carries both numbers so
// callers can offer alternatives in their UX.
type InsufficientCapacityError struct {
	Available int // effective spots left on the slot
	Requested int // spots the caller asked for
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: available=%d, requested=%d", e.Available, e.Requested)
}

// IsInsufficientCapacity reports whether err is an
// InsufficientCapacityError, unwrapping as needed.
func IsInsufficientCapacity(err error) bool {
	var ice *InsufficientCapacityError
	return errors.As(err, &ice)
}

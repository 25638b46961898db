package model

import "time"

// Lease is a short-lived, session-owned hold on a quantity of a slot's
// capacity.  A lease is not a booking: it reserves room in the
// effective-availability computation while a client completes checkout,
// and it expires automatically.  Expired leases stop counting against
// availability the moment ExpiresAt passes, whether or not the sweeper
// has deleted the row yet.
//
// Fields:
//
//	ID               - primary key identifier.
//	SlotID           - slot whose capacity is held.
//	SessionID        - opaque owner; an authenticated user or an
//	                   anonymous browser session.
//	ReservedCapacity - number of spots held (> 0).
//	AcquiredAt       - when the hold was created.
//	ExpiresAt        - when the hold stops counting.
type Lease struct {
	ID               uint64    // slot_leases.id
	SlotID           uint64    // slot_leases.slot_id
	SessionID        string    // slot_leases.session_id
	ReservedCapacity int       // slot_leases.reserved_capacity
	AcquiredAt       time.Time // slot_leases.acquired_at
	ExpiresAt        time.Time // slot_leases.expires_at
}

// Expired reports whether the lease no longer counts against
// availability at the given instant.
func (l *Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

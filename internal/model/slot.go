package model

import "time"

// Slot represents one bookable time window for one service.  The four
// capacity fields form the ledger that every booking, cancellation and
// reschedule keeps consistent:
//
//	available_capacity + booked_count == original_capacity
//
// The equation may be violated only transiently after an administrative
// capacity reduction, until the resync recomputes the slot from its
// active bookings.  IsOverbooked is true when committed spots exceed
// the configured maximum after such a reduction.
//
// Fields:
//
//	ID                - primary key identifier.
//	TenantID          - owning tenant.
//	ServiceID         - service this window belongs to.
//	StartsAt / EndsAt - time window in UTC.
//	OriginalCapacity  - authoritative maximum number of spots (>= 0).
//	AvailableCapacity - spots still open to new bookings.
//	BookedCount       - spots committed by active bookings.
//	IsAvailable       - soft-disable flag; a disabled slot rejects
//	                    admission but is never hard-deleted while
//	                    referenced by a booking.
//	IsOverbooked      - BookedCount > OriginalCapacity.
type Slot struct {
	ID                uint64    // slots.id
	TenantID          uint64    // slots.tenant_id
	ServiceID         uint64    // slots.service_id
	StartsAt          time.Time // slots.starts_at
	EndsAt            time.Time // slots.ends_at
	OriginalCapacity  int       // slots.original_capacity
	AvailableCapacity int       // slots.available_capacity
	BookedCount       int       // slots.booked_count
	IsAvailable       bool      // slots.is_available
	IsOverbooked      bool      // slots.is_overbooked
	CreatedAt         time.Time // slots.created_at
	UpdatedAt         time.Time // slots.updated_at
}

// LedgerConsistent reports whether the capacity equation holds.  An
// overbooked slot is consistent in its own way: a resync after a
// capacity reduction leaves booked above original with nothing
// available, and that state is expected until bookings drain.  Any
// other violation is a fatal accounting error and must be logged
// loudly by the caller.
func (s *Slot) LedgerConsistent() bool {
	if s.IsOverbooked {
		return s.AvailableCapacity == 0 && s.BookedCount > s.OriginalCapacity
	}
	return s.AvailableCapacity+s.BookedCount == s.OriginalCapacity
}

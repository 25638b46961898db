package model

import "time"

// Booking status values.  Only bookings in an active status count
// against a slot's ledger; transitioning into StatusCancelled restores
// capacity exactly once.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCheckedIn = "CHECKED_IN"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// ActiveStatuses are the statuses whose visitor counts are committed
// inventory on the owning slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusCheckedIn}

// Booking is a durable, committed reservation of VisitorCount spots on
// a slot.  The slot reference is mutable: a reschedule re-balances the
// ledgers of the old and the new slot and moves the reference.  A
// booking carries at most one valid ticket token at any time; the
// token is cleared and the consumed flag set when the ticket is
// invalidated (check-in or reschedule).
//
// Bookings are never hard-deleted while capacity accounting depends on
// them; cancellation is a status transition.
type Booking struct {
	ID             uint64     // bookings.id
	TenantID       uint64     // bookings.tenant_id
	ServiceID      uint64     // bookings.service_id
	SlotID         uint64     // bookings.slot_id (mutable, changes on reschedule)
	SessionID      string     // bookings.session_id
	VisitorCount   int        // bookings.visitor_count
	Status         string     // bookings.status
	TicketToken    *string    // bookings.ticket_token (nil after invalidation)
	TicketConsumed bool       // bookings.ticket_consumed
	InvalidatedBy  *string    // bookings.ticket_invalidated_by
	InvalidatedAt  *time.Time // bookings.ticket_invalidated_at
	PriceCents     uint32     // bookings.price_cents
	CustomerName   string     // bookings.customer_name
	CustomerEmail  string     // bookings.customer_email
	Notes          string     // bookings.notes
	CreatedAt      time.Time  // bookings.created_at
	UpdatedAt      time.Time  // bookings.updated_at
}

// Active reports whether the booking currently counts against its
// slot's ledger.
func (b *Booking) Active() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

// Reschedulable reports whether the booking may be moved to another
// slot.
func (b *Booking) Reschedulable() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

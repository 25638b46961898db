package model

import "time"

// AuditRecord is an immutable entry capturing a privileged mutation
// such as a reschedule: who performed it, when, and the old and new
// values as JSON payloads.  Records are created only; the core never
// mutates or deletes them.
type AuditRecord struct {
	ID        uint64    // audit_records.id
	BookingID uint64    // audit_records.booking_id
	ActorID   string    // audit_records.actor_id
	Action    string    // audit_records.action (e.g. "booking.reschedule")
	OldValues string    // audit_records.old_values (JSON)
	NewValues string    // audit_records.new_values (JSON)
	CreatedAt time.Time // audit_records.created_at
}

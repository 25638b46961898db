// Package queue defines the messages exchanged with the ticket
// issuance collaborator and the background consumer that processes
// them.
package queue

// Reasons a ticket issue event is published.
const (
	ReasonBooked      = "booked"      // first ticket after a booking commit
	ReasonRescheduled = "rescheduled" // replacement after a reschedule invalidated the old ticket
)

// TicketIssueEvent asks the ticket issuance component to render and
// deliver a ticket.  Publishing is fire and forget relative to the
// core transaction: a delivery failure never rolls a booking back.
type TicketIssueEvent struct {
	BookingID    uint64 `json:"booking_id"`
	SlotID       uint64 `json:"slot_id"`
	VisitorCount int    `json:"visitor_count"`
	TicketToken  string `json:"ticket_token"`
	Reason       string `json:"reason"`
	IssuedAt     string `json:"issued_at"` // RFC3339 UTC
}

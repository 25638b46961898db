package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetk/appointment-booking/internal/middleware"
	"github.com/avetk/appointment-booking/internal/publisher"
	"github.com/avetk/appointment-booking/internal/queue"
	"github.com/avetk/appointment-booking/internal/repository"
	"github.com/avetk/appointment-booking/internal/reservation"
)

// BookingHandler serves the customer-facing reservation endpoints:
// acquiring and releasing slot leases, committing and cancelling
// bookings, and listing the caller's own bookings.  Session identity
// is extracted by middleware before any of these methods run.
type BookingHandler struct {
	Svc         *reservation.Service
	BookingRepo *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler. Both dependencies
// must be non-nil.
func NewBookingHandler(svc *reservation.Service, bookingRepo *repository.BookingRepo) *BookingHandler {
	if svc == nil || bookingRepo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, BookingRepo: bookingRepo}
}

type acquireLeaseRequest struct {
	Quantity   int `json:"quantity" validate:"required,min=1"`
	TTLSeconds int `json:"ttl_seconds" validate:"omitempty,min=1,max=900"`
}

// AcquireLease handles POST /v1/slots/:id/leases.  The caller asks to
// temporarily reserve quantity units of the slot's capacity; the lease
// expires on its own unless converted into a booking first.
func (h *BookingHandler) AcquireLease(c echo.Context) error {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body acquireLeaseRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ttl := time.Duration(body.TTLSeconds) * time.Second
	lease, err := h.Svc.AcquireLease(c.Request().Context(), slotID, middleware.SessionID(c), body.Quantity, ttl)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"lease_id":   lease.ID,
		"slot_id":    lease.SlotID,
		"quantity":   lease.ReservedCapacity,
		"expires_at": lease.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// GetLease handles GET /v1/leases/:id.  Clients poll this before
// committing to learn whether their hold is still alive; an expired or
// foreign lease reads as invalid rather than as an error.
func (h *BookingHandler) GetLease(c echo.Context) error {
	leaseID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || leaseID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lease id"})
	}
	valid, err := h.Svc.ValidateLease(c.Request().Context(), leaseID, middleware.SessionID(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lease_id": leaseID, "valid": valid})
}

// ReleaseLease handles DELETE /v1/leases/:id.  Only the owning session
// can drop a lease.  Releasing a lease that has already expired or been
// consumed is not an error; the call is idempotent and always returns
// 204 on success.
func (h *BookingHandler) ReleaseLease(c echo.Context) error {
	leaseID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || leaseID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lease id"})
	}
	if err := h.Svc.ReleaseLease(c.Request().Context(), leaseID, middleware.SessionID(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type commitBookingRequest struct {
	SlotID        uint64  `json:"slot_id" validate:"required"`
	LeaseID       *uint64 `json:"lease_id"`
	VisitorCount  int     `json:"visitor_count" validate:"required,min=1,max=100"`
	CustomerName  string  `json:"customer_name" validate:"required,max=255"`
	CustomerEmail string  `json:"customer_email" validate:"required,email"`
	Notes         string  `json:"notes" validate:"max=1000"`
}

// CommitBooking handles POST /v1/bookings.  On success the booking is
// durable, the slot's capacity ledger is decremented, and a ticket
// issue event is published for downstream delivery.
func (h *BookingHandler) CommitBooking(c echo.Context) error {
	var body commitBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	booking, err := h.Svc.CommitBooking(c.Request().Context(), reservation.CommitRequest{
		LeaseID:       body.LeaseID,
		SlotID:        body.SlotID,
		SessionID:     middleware.SessionID(c),
		VisitorCount:  body.VisitorCount,
		CustomerName:  body.CustomerName,
		CustomerEmail: body.CustomerEmail,
		Notes:         body.Notes,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	if booking.TicketToken != nil {
		publishTicketEvent(queue.TicketIssueEvent{
			BookingID:    booking.ID,
			SlotID:       booking.SlotID,
			VisitorCount: booking.VisitorCount,
			TicketToken:  *booking.TicketToken,
			Reason:       queue.ReasonBooked,
			IssuedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	}
	resp := echo.Map{
		"booking_id":    booking.ID,
		"slot_id":       booking.SlotID,
		"status":        booking.Status,
		"visitor_count": booking.VisitorCount,
		"price_cents":   booking.PriceCents,
	}
	if booking.TicketToken != nil {
		resp["ticket_token"] = *booking.TicketToken
	}
	return c.JSON(http.StatusCreated, resp)
}

// CancelBooking handles POST /v1/bookings/:id/cancel.  Only the owning
// session can cancel; another session's booking reads as not found.
// Capacity held by the booking is returned to the slot and any
// outstanding ticket is invalidated.  Cancelling an already cancelled
// booking succeeds.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.CancelBooking(c.Request().Context(), bookingID, middleware.SessionID(c)); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": bookingID, "status": "CANCELLED"})
}

// ListBookings handles GET /v1/bookings and returns the caller's own
// bookings, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	bookings, err := h.BookingRepo.ListBySession(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		item := echo.Map{
			"booking_id":    b.ID,
			"slot_id":       b.SlotID,
			"status":        b.Status,
			"visitor_count": b.VisitorCount,
			"price_cents":   b.PriceCents,
			"created_at":    b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if b.TicketToken != nil {
			item["ticket_token"] = *b.TicketToken
		}
		out = append(out, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// publishTicketEvent hands the event to the message queue without
// blocking the request. The broker connection has its own timeout and
// delivery failures are logged by the publisher.
func publishTicketEvent(ev queue.TicketIssueEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = publisher.PublishTicketIssue(ctx, ev)
	}()
}

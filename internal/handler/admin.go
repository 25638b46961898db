package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avetk/appointment-booking/internal/middleware"
	"github.com/avetk/appointment-booking/internal/queue"
	"github.com/avetk/appointment-booking/internal/repository"
	"github.com/avetk/appointment-booking/internal/reservation"
)

// AdminHandler groups the operator endpoints: rescheduling bookings,
// changing service capacity, generating slots from shift templates,
// toggling slot availability, reading audit trails and sweeping
// expired leases on demand.  All routes behind this handler require an
// ADMIN role.
type AdminHandler struct {
	Svc       *reservation.Service
	AuditRepo *repository.AuditRepo
}

// NewAdminHandler constructs an AdminHandler. Both dependencies must
// be non-nil.
func NewAdminHandler(svc *reservation.Service, auditRepo *repository.AuditRepo) *AdminHandler {
	if svc == nil || auditRepo == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Svc: svc, AuditRepo: auditRepo}
}

type rescheduleRequest struct {
	NewSlotID uint64 `json:"new_slot_id" validate:"required"`
}

// Reschedule handles POST /v1/admin/bookings/:id/reschedule.  The move
// is atomic: capacity returns to the old slot and is taken from the new
// one in a single transaction, and any previously issued ticket is
// invalidated.  A replacement ticket is issued and published afterwards
// so the visitor always ends up holding exactly one valid ticket.
func (h *AdminHandler) Reschedule(c echo.Context) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body rescheduleRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	result, err := h.Svc.Reschedule(c.Request().Context(), bookingID, body.NewSlotID, middleware.ActorID(c))
	if err != nil {
		return writeServiceError(c, err)
	}
	if result.TicketsInvalidated {
		booking, err := h.Svc.IssueTicket(c.Request().Context(), bookingID)
		if err != nil {
			return writeServiceError(c, err)
		}
		publishTicketEvent(queue.TicketIssueEvent{
			BookingID:    booking.ID,
			SlotID:       booking.SlotID,
			VisitorCount: booking.VisitorCount,
			TicketToken:  *booking.TicketToken,
			Reason:       queue.ReasonRescheduled,
			IssuedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, result)
}

type serviceCapacityRequest struct {
	Capacity int `json:"capacity" validate:"min=0"`
}

// SetServiceCapacity handles PUT /v1/admin/services/:id/capacity.  The
// new capacity is applied to the service and every future slot is
// resynced against its committed bookings; slots whose bookings exceed
// the new capacity are flagged as overbooked rather than rejected.
func (h *AdminHandler) SetServiceCapacity(c echo.Context) error {
	serviceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || serviceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	var body serviceCapacityRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	updated, err := h.Svc.ResyncServiceCapacity(c.Request().Context(), serviceID, body.Capacity)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"service_id": serviceID, "capacity": body.Capacity, "slots_updated": updated})
}

type generateSlotsRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// GenerateSlots handles POST /v1/admin/services/:id/slots/generate.
// Slots are materialized from the service's weekly shift templates over
// the requested date range. Windows that already have a slot are
// skipped, so the operation can be re-run safely.
func (h *AdminHandler) GenerateSlots(c echo.Context) error {
	serviceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || serviceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	var body generateSlotsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	from, err := time.Parse("2006-01-02", body.From)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	to, err := time.Parse("2006-01-02", body.To)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must not be before from"})
	}
	created, err := h.Svc.GenerateSlots(c.Request().Context(), serviceID, from, to)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"service_id": serviceID, "slots_created": created})
}

type slotAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// SetSlotAvailability handles PUT /v1/admin/slots/:id/availability.
// An unavailable slot keeps its existing bookings but rejects new
// leases and commits.
func (h *AdminHandler) SetSlotAvailability(c echo.Context) error {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body slotAvailabilityRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Svc.SetSlotAvailability(c.Request().Context(), slotID, *body.Available); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"slot_id": slotID, "available": *body.Available})
}

// BookingAudit handles GET /v1/admin/bookings/:id/audit and returns
// the booking's audit trail, oldest first.  The slot history of a
// rescheduled booking lives here, not on the booking row.
func (h *AdminHandler) BookingAudit(c echo.Context) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	records, err := h.AuditRepo.ListByBooking(c.Request().Context(), bookingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(records))
	for _, rec := range records {
		out = append(out, echo.Map{
			"id":         rec.ID,
			"actor_id":   rec.ActorID,
			"action":     rec.Action,
			"old_values": rec.OldValues,
			"new_values": rec.NewValues,
			"created_at": rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": bookingID, "audit": out})
}

// SweepLeases handles POST /v1/admin/leases/sweep and removes every
// expired lease immediately instead of waiting for the periodic
// sweeper.
func (h *AdminHandler) SweepLeases(c echo.Context) error {
	removed, err := h.Svc.SweepExpiredLeases(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"leases_removed": removed})
}

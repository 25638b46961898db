package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avetk/appointment-booking/internal/reservation"
)

// TicketHandler serves ticket validation at the venue entrance.
type TicketHandler struct {
	Svc *reservation.Service
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(svc *reservation.Service) *TicketHandler {
	if svc == nil {
		panic("nil service passed to NewTicketHandler")
	}
	return &TicketHandler{Svc: svc}
}

type validateTicketRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
}

// ValidateTicket handles POST /v1/tickets/validate.  A ticket can be
// consumed exactly once: the first successful call checks the visitor
// in, every later call with the same token gets a 409.
func (h *TicketHandler) ValidateTicket(c echo.Context) error {
	var body validateTicketRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	booking, err := h.Svc.CheckInTicket(c.Request().Context(), body.Token)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":    booking.ID,
		"slot_id":       booking.SlotID,
		"visitor_count": booking.VisitorCount,
		"status":        booking.Status,
	})
}

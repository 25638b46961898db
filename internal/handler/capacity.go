package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avetk/appointment-booking/internal/reservation"
)

// CapacityHandler exposes read-only capacity information for slots.
type CapacityHandler struct {
	Svc *reservation.Service
}

// NewCapacityHandler constructs a CapacityHandler.
func NewCapacityHandler(svc *reservation.Service) *CapacityHandler {
	if svc == nil {
		panic("nil service passed to NewCapacityHandler")
	}
	return &CapacityHandler{Svc: svc}
}

// GetEffectiveCapacity handles GET /v1/slots/:id/capacity.  The
// effective figure already accounts for capacity locked by unexpired
// leases, so it is what a new caller could actually lease right now.
func (h *CapacityHandler) GetEffectiveCapacity(c echo.Context) error {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	cap, err := h.Svc.GetEffectiveCapacity(c.Request().Context(), slotID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cap)
}

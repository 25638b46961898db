package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avetk/appointment-booking/internal/repository"
)

// writeServiceError maps the reservation layer's sentinel errors to HTTP
// responses. Anything unrecognized becomes a 500 with a generic body so
// that internal details never leak to clients.
func writeServiceError(c echo.Context, err error) error {
	var capErr *repository.InsufficientCapacityError
	if errors.As(err, &capErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "insufficient capacity",
			"available": capErr.Available,
			"requested": capErr.Requested,
		})
	}

	switch {
	case errors.Is(err, repository.ErrSlotNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrLeaseNotFound),
		errors.Is(err, repository.ErrServiceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrSlotUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrLeaseExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrLeaseMismatch):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidStatus),
		errors.Is(err, repository.ErrTicketConsumed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrCrossService):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

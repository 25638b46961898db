package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avetk/appointment-booking/internal/config"
	"github.com/avetk/appointment-booking/internal/handler"
	"github.com/avetk/appointment-booking/internal/middleware"
)

// RegisterRoutes registers routes that require no identity at all.
// Currently it exposes only a health check used by load balancers and
// monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the customer-facing reservation routes.
// All of them require a session identity, supplied either by a JWT or
// by the X-Session-Id header; the Session middleware enforces that.
// When a Redis client is provided the whole group is rate limited and
// the capacity read is served through the response cache.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, cap *handler.CapacityHandler, t *handler.TicketHandler, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.Session())
	if rdb != nil {
		g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	// Capacity is the hottest read on the system: every client polls it
	// while choosing a slot. It goes through the short-TTL response
	// cache; staleness is bounded by the cache TTL and the authoritative
	// check still happens inside the lease transaction.
	capacityRoute := g.Group("")
	if rdb != nil {
		capacityRoute.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}
	capacityRoute.GET("/slots/:id/capacity", cap.GetEffectiveCapacity)

	g.POST("/slots/:id/leases", b.AcquireLease)
	g.GET("/leases/:id", b.GetLease)
	g.DELETE("/leases/:id", b.ReleaseLease)
	g.POST("/bookings", b.CommitBooking)
	g.POST("/bookings/:id/cancel", b.CancelBooking)
	g.GET("/bookings", b.ListBookings)
	g.POST("/tickets/validate", t.ValidateTicket)
}

// RegisterAdmin registers the operator endpoints under /v1/admin.  The
// whole group requires a valid access token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.POST("/bookings/:id/reschedule", a.Reschedule)
	g.GET("/bookings/:id/audit", a.BookingAudit)
	g.PUT("/services/:id/capacity", a.SetServiceCapacity)
	g.POST("/services/:id/slots/generate", a.GenerateSlots)
	g.PUT("/slots/:id/availability", a.SetSlotAvailability)
	g.POST("/leases/sweep", a.SweepLeases)
}

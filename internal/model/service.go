package model

import "time"

// Service describes a bookable offering of a tenant.  SlotCapacity is
// the configured number of spots for every slot of the service; an
// administrative change to it triggers a capacity resync of all future
// slots.
type Service struct {
	ID           uint64    // services.id
	TenantID     uint64    // services.tenant_id
	Name         string    // services.name
	SlotCapacity int       // services.slot_capacity
	DurationMin  int       // services.duration_min
	PriceCents   uint32    // services.price_cents
	IsActive     bool      // services.is_active
	CreatedAt    time.Time // services.created_at
	UpdatedAt    time.Time // services.updated_at
}

// Shift is one recurring weekly window of a service.  Shifts are
// expanded into concrete dated slots by the slot generator; Weekday
// follows time.Weekday numbering (Sunday = 0).  StartTime and EndTime
// are wall-clock strings ("HH:MM") interpreted in UTC.
type Shift struct {
	ID        uint64 // service_shifts.id
	ServiceID uint64 // service_shifts.service_id
	Weekday   int    // service_shifts.weekday
	StartTime string // service_shifts.start_time
	EndTime   string // service_shifts.end_time
}

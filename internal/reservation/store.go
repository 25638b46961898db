// Package reservation implements the slot reservation and capacity
// control core: short-lived capacity leases, atomic booking commits,
// atomic reschedules, administrative capacity resync and the expired
// lease sweep.  The core is stateless application logic in front of a
// transactional store; concurrency correctness is delegated to the
// store's row locks, never to in-process mutexes, so any number of
// instances may run these operations concurrently.
package reservation

import (
	"context"
	"database/sql"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

// SlotStore is the slot-side persistence the core depends on.  The
// contract that matters is GetForUpdateTx: it must take an exclusive
// row lock held until the enclosing transaction ends, because every
// admission check is a read-then-decide-then-write sequence that is
// unsafe without one.
type SlotStore interface {
	GetTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error)
	ReserveTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantity int) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantity int) error
	SetCapacityTx(ctx context.Context, tx *sql.Tx, slotID uint64, original, available, booked int, overbooked bool) error
	SetAvailabilityTx(ctx context.Context, tx *sql.Tx, slotID uint64, available bool) error
	FutureIDsByServiceTx(ctx context.Context, tx *sql.Tx, serviceID uint64, after time.Time) ([]uint64, error)
	CreateTx(ctx context.Context, tx *sql.Tx, s *model.Slot) error
	ExistsForWindowTx(ctx context.Context, tx *sql.Tx, serviceID uint64, startsAt time.Time) (bool, error)
}

// LeaseStore is the lease-side persistence the core depends on.
type LeaseStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, l *model.Lease) error
	GetTx(ctx context.Context, tx *sql.Tx, leaseID uint64) (*model.Lease, error)
	ActiveQuantityTx(ctx context.Context, tx *sql.Tx, slotID uint64, now time.Time) (int, error)
	DeleteTx(ctx context.Context, tx *sql.Tx, leaseID uint64) error
	DeleteExpiredBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64, now time.Time) (int, error)
	DeleteExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) (int, error)
}

// BookingStore is the booking-side persistence the core depends on.
type BookingStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error)
	UpdateSlotTx(ctx context.Context, tx *sql.Tx, bookingID, newSlotID uint64) error
	UpdatePriceTx(ctx context.Context, tx *sql.Tx, bookingID uint64, priceCents uint32) error
	TransitionStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, from []string, to string) (bool, error)
	InvalidateTicketTx(ctx context.Context, tx *sql.Tx, bookingID uint64, actorID string, at time.Time) error
	SetTicketTx(ctx context.Context, tx *sql.Tx, bookingID uint64, token string) error
	GetByTicketForUpdateTx(ctx context.Context, tx *sql.Tx, token string) (*model.Booking, error)
	ConsumeTicketTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error
	ActiveVisitorTotalTx(ctx context.Context, tx *sql.Tx, slotID uint64) (int, error)
}

// AuditStore records privileged mutations.  Append-only.
type AuditStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, rec *model.AuditRecord) error
}

// ServiceStore is the service/tenant directory the core consults for
// configured per-slot capacity and recurring shift windows.
type ServiceStore interface {
	GetTx(ctx context.Context, tx *sql.Tx, serviceID uint64) (*model.Service, error)
	SetSlotCapacityTx(ctx context.Context, tx *sql.Tx, serviceID uint64, capacity int) error
	ShiftsTx(ctx context.Context, tx *sql.Tx, serviceID uint64) ([]model.Shift, error)
}

// Store bundles the persistence surfaces behind a single transactional
// boundary.  WithTx runs fn inside one transaction: any error from fn
// rolls the whole transaction back, so partial capacity adjustment is
// never observable.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Slots() SlotStore
	Leases() LeaseStore
	Bookings() BookingStore
	Audits() AuditStore
	Services() ServiceStore
}

// sqlStore is the MySQL-backed Store used in production.
type sqlStore struct {
	db       *sql.DB
	slots    *repository.SlotRepo
	leases   *repository.LeaseRepo
	bookings *repository.BookingRepo
	audits   *repository.AuditRepo
	services *repository.ServiceRepo
}

// NewStore wires the MySQL repositories behind the Store interface.
func NewStore(db *sql.DB) Store {
	return &sqlStore{
		db:       db,
		slots:    repository.NewSlotRepo(db),
		leases:   repository.NewLeaseRepo(db),
		bookings: repository.NewBookingRepo(db),
		audits:   repository.NewAuditRepo(db),
		services: repository.NewServiceRepo(db),
	}
}

func (s *sqlStore) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *sqlStore) Slots() SlotStore       { return s.slots }
func (s *sqlStore) Leases() LeaseStore     { return s.leases }
func (s *sqlStore) Bookings() BookingStore { return s.bookings }
func (s *sqlStore) Audits() AuditStore     { return s.audits }
func (s *sqlStore) Services() ServiceStore { return s.services }

package reservation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

// MaxVisitorsPerBooking caps a single booking's party size.  The cap
// also keeps the per-booking price, computed in cents as a uint32,
// inside its range for any plausible service price.
const MaxVisitorsPerBooking = 100

// CommitRequest carries the inputs of a booking commit.  LeaseID is
// optional: a lease is advisory capacity insurance, not a capacity
// source, and a commit without one is admitted against the slot's
// live effective availability.
type CommitRequest struct {
	LeaseID       *uint64
	SlotID        uint64
	SessionID     string
	VisitorCount  int
	CustomerName  string
	CustomerEmail string
	Notes         string
}

// CommitBooking converts a reservation attempt into a durable booking,
// permanently decrementing the slot's ledger.  All steps run in one
// transaction: lock the slot row, validate the supplied lease, re-check
// the slot's live availability (a concurrent administrative change may
// have shrunk it since the lease was issued), decrement the ledger,
// insert the booking with a fresh ticket token, and delete the
// consumed lease.  Any failure rolls the whole transaction back,
// leaving capacity and lease state untouched.
func (s *Service) CommitBooking(ctx context.Context, req CommitRequest) (*model.Booking, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if req.VisitorCount <= 0 {
		return nil, fmt.Errorf("visitor count must be positive, got %d", req.VisitorCount)
	}
	if req.VisitorCount > MaxVisitorsPerBooking {
		return nil, fmt.Errorf("visitor count must be at most %d, got %d", MaxVisitorsPerBooking, req.VisitorCount)
	}

	var booking *model.Booking
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		slot, err := s.store.Slots().GetForUpdateTx(ctx, tx, req.SlotID)
		if err != nil {
			return err
		}
		if !slot.IsAvailable {
			return repository.ErrSlotUnavailable
		}
		s.checkLedger(slot)

		var lease *model.Lease
		if req.LeaseID != nil {
			lease, err = s.store.Leases().GetTx(ctx, tx, *req.LeaseID)
			if err != nil {
				return err
			}
			if lease.Expired(now) {
				return repository.ErrLeaseExpired
			}
			if lease.SessionID != req.SessionID || lease.SlotID != req.SlotID {
				return repository.ErrLeaseMismatch
			}
			if lease.ReservedCapacity < req.VisitorCount {
				return repository.ErrLeaseMismatch
			}
			// The lease already passed admission, so the commit only
			// re-checks raw availability against concurrent
			// administrative changes.
			if slot.AvailableCapacity < req.VisitorCount {
				return &repository.InsufficientCapacityError{
					Available: slot.AvailableCapacity,
					Requested: req.VisitorCount,
				}
			}
		} else {
			// Leaseless commits are admitted against effective
			// availability so they cannot consume spots held by other
			// sessions' active leases.
			locked, err := s.store.Leases().ActiveQuantityTx(ctx, tx, req.SlotID, now)
			if err != nil {
				return err
			}
			effective := slot.AvailableCapacity - locked
			if effective < req.VisitorCount {
				return &repository.InsufficientCapacityError{
					Available: effective,
					Requested: req.VisitorCount,
				}
			}
		}

		svc, err := s.store.Services().GetTx(ctx, tx, slot.ServiceID)
		if err != nil {
			return err
		}

		if err := s.store.Slots().ReserveTx(ctx, tx, req.SlotID, req.VisitorCount); err != nil {
			return err
		}

		token := uuid.NewString()
		booking = &model.Booking{
			TenantID:      slot.TenantID,
			ServiceID:     slot.ServiceID,
			SlotID:        slot.ID,
			SessionID:     req.SessionID,
			VisitorCount:  req.VisitorCount,
			Status:        model.StatusConfirmed,
			TicketToken:   &token,
			PriceCents:    svc.PriceCents * uint32(req.VisitorCount),
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Notes:         req.Notes,
		}
		if err := s.store.Bookings().CreateTx(ctx, tx, booking); err != nil {
			return err
		}

		if lease != nil {
			if err := s.store.Leases().DeleteTx(ctx, tx, lease.ID); err != nil {
				return err
			}
		}
		booking.CreatedAt = now
		booking.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking transitions a booking into CANCELLED and restores its
// spots to the owning slot's ledger.  The booking must belong to the
// calling session; an empty sessionID is the administrative bypass.  A
// foreign-session attempt reports the booking as not found rather than
// confirming its existence.  Restoration happens exactly once per
// booking: repeated cancellation attempts find the booking already
// terminal and return without touching capacity.
func (s *Service) CancelBooking(ctx context.Context, bookingID uint64, sessionID string) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		booking, err := s.store.Bookings().GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if sessionID != "" && booking.SessionID != sessionID {
			return repository.ErrBookingNotFound
		}
		changed, err := s.store.Bookings().TransitionStatusTx(ctx, tx, bookingID, model.ActiveStatuses, model.StatusCancelled)
		if err != nil {
			return err
		}
		if !changed {
			if booking.Status == model.StatusCancelled {
				return nil // already cancelled, capacity was restored the first time
			}
			return repository.ErrInvalidStatus
		}
		if _, err := s.store.Slots().GetForUpdateTx(ctx, tx, booking.SlotID); err != nil {
			return err
		}
		if err := s.store.Slots().ReleaseTx(ctx, tx, booking.SlotID, booking.VisitorCount); err != nil {
			return err
		}
		return s.store.Bookings().InvalidateTicketTx(ctx, tx, bookingID, booking.SessionID, s.now())
	})
}

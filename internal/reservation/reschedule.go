package reservation

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

// RescheduleResult reports the outcome of a reschedule.  When
// TicketsInvalidated is true the caller must have a new ticket issued;
// ticket (re)generation deliberately happens outside the reschedule
// transaction so database commit latency is never coupled to document
// rendering.
type RescheduleResult struct {
	BookingID          uint64 `json:"booking_id"`
	OldSlotID          uint64 `json:"old_slot_id"`
	NewSlotID          uint64 `json:"new_slot_id"`
	PriceChanged       bool   `json:"price_changed"`
	TicketsInvalidated bool   `json:"tickets_invalidated"`
}

type rescheduleAudit struct {
	SlotID     uint64 `json:"slot_id"`
	PriceCents uint32 `json:"price_cents"`
}

// Reschedule atomically moves a committed booking to a different slot:
// it releases capacity on the old slot, reserves it on the new one,
// updates the booking's slot reference, invalidates the issued ticket
// and appends an audit record.  All or nothing.
//
// Only bookings in an active status may move, and the target slot must
// belong to the same tenant and service: a cross-service move would
// invalidate pricing and duration assumptions.  When both slots are
// locked they are locked in ascending slot-id order, so two
// reschedules swapping slots with each other can never deadlock on
// lock-order inversion.
func (s *Service) Reschedule(ctx context.Context, bookingID, newSlotID uint64, actorID string) (*RescheduleResult, error) {
	var result *RescheduleResult
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		booking, err := s.store.Bookings().GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !booking.Reschedulable() {
			return repository.ErrInvalidStatus
		}
		if booking.SlotID == newSlotID {
			// Nothing to move; report success without touching either
			// ledger or the ticket.
			result = &RescheduleResult{
				BookingID: bookingID,
				OldSlotID: booking.SlotID,
				NewSlotID: newSlotID,
			}
			return nil
		}

		oldSlot, newSlot, err := s.lockSlotPair(ctx, tx, booking.SlotID, newSlotID)
		if err != nil {
			return err
		}
		s.checkLedger(oldSlot)
		s.checkLedger(newSlot)

		if newSlot.TenantID != booking.TenantID || newSlot.ServiceID != booking.ServiceID {
			return repository.ErrCrossService
		}
		if !newSlot.IsAvailable {
			return repository.ErrSlotUnavailable
		}
		locked, err := s.store.Leases().ActiveQuantityTx(ctx, tx, newSlotID, s.now())
		if err != nil {
			return err
		}
		effective := newSlot.AvailableCapacity - locked
		if effective < booking.VisitorCount {
			return &repository.InsufficientCapacityError{Available: effective, Requested: booking.VisitorCount}
		}

		if err := s.store.Slots().ReleaseTx(ctx, tx, oldSlot.ID, booking.VisitorCount); err != nil {
			return err
		}
		if err := s.store.Slots().ReserveTx(ctx, tx, newSlot.ID, booking.VisitorCount); err != nil {
			return err
		}
		if err := s.store.Bookings().UpdateSlotTx(ctx, tx, bookingID, newSlotID); err != nil {
			return err
		}
		if err := s.store.Bookings().InvalidateTicketTx(ctx, tx, bookingID, actorID, s.now()); err != nil {
			return err
		}

		newPrice := s.pricer(booking, oldSlot, newSlot)
		priceChanged := newPrice != booking.PriceCents
		if priceChanged {
			if err := s.store.Bookings().UpdatePriceTx(ctx, tx, bookingID, newPrice); err != nil {
				return err
			}
		}

		oldVals, err := json.Marshal(rescheduleAudit{SlotID: oldSlot.ID, PriceCents: booking.PriceCents})
		if err != nil {
			return err
		}
		newVals, err := json.Marshal(rescheduleAudit{SlotID: newSlot.ID, PriceCents: newPrice})
		if err != nil {
			return err
		}
		if err := s.store.Audits().CreateTx(ctx, tx, &model.AuditRecord{
			BookingID: bookingID,
			ActorID:   actorID,
			Action:    "booking.reschedule",
			OldValues: string(oldVals),
			NewValues: string(newVals),
		}); err != nil {
			return err
		}

		result = &RescheduleResult{
			BookingID:          bookingID,
			OldSlotID:          oldSlot.ID,
			NewSlotID:          newSlot.ID,
			PriceChanged:       priceChanged,
			TicketsInvalidated: true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockSlotPair locks two distinct slots in ascending slot-id order and
// returns them as (old, new).  Deterministic ordering is what keeps
// concurrent reschedules that swap slots with each other deadlock
// free.
func (s *Service) lockSlotPair(ctx context.Context, tx *sql.Tx, oldID, newID uint64) (*model.Slot, *model.Slot, error) {
	firstID, secondID := oldID, newID
	if newID < oldID {
		firstID, secondID = newID, oldID
	}
	first, err := s.store.Slots().GetForUpdateTx(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.store.Slots().GetForUpdateTx(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}
	if first.ID == oldID {
		return first, second, nil
	}
	return second, first, nil
}

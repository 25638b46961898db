package reservation

import (
	"context"
	"database/sql"
	"fmt"
)

// EffectiveCapacity is the read-only availability snapshot exposed for
// UI display: the slot's raw available capacity, the total held by
// unexpired leases, and the difference that admission decisions see.
type EffectiveCapacity struct {
	SlotID    uint64 `json:"slot_id"`
	Available int    `json:"available"`
	Locked    int    `json:"locked"`
	Effective int    `json:"effective"`
}

// GetEffectiveCapacity derives a slot's effectively available capacity
// as available_capacity minus the sum of active, unexpired leases.
// Expired leases stop counting immediately, whether or not the sweeper
// has deleted them.  Effective is clamped at zero for display: it can
// only compute negative transiently after an administrative capacity
// reduction.
func (s *Service) GetEffectiveCapacity(ctx context.Context, slotID uint64) (*EffectiveCapacity, error) {
	var out *EffectiveCapacity
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		slot, err := s.store.Slots().GetTx(ctx, tx, slotID)
		if err != nil {
			return err
		}
		s.checkLedger(slot)
		locked, err := s.store.Leases().ActiveQuantityTx(ctx, tx, slotID, s.now())
		if err != nil {
			return err
		}
		effective := slot.AvailableCapacity - locked
		if effective < 0 {
			effective = 0
		}
		out = &EffectiveCapacity{
			SlotID:    slotID,
			Available: slot.AvailableCapacity,
			Locked:    locked,
			Effective: effective,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResyncServiceCapacity reacts to an administrative change of a
// service's configured per-slot capacity.  For every future slot of
// the service it stores the new original capacity and recomputes
// booked and available counts from the ground truth of active
// bookings:
//
//	booked    = Σ visitor_count of active bookings on the slot
//	available = max(0, newCapacity - booked)
//	overbooked = booked > newCapacity
//
// A full recompute is the only safe way to reconcile a capacity
// reduction against bookings made under the old, larger capacity; an
// incremental delta would carry the stale accounting forward.  Returns
// the number of slots resynced.
func (s *Service) ResyncServiceCapacity(ctx context.Context, serviceID uint64, newCapacity int) (int, error) {
	if newCapacity < 0 {
		return 0, fmt.Errorf("capacity must not be negative, got %d", newCapacity)
	}
	count := 0
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.store.Services().GetTx(ctx, tx, serviceID); err != nil {
			return err
		}
		if err := s.store.Services().SetSlotCapacityTx(ctx, tx, serviceID, newCapacity); err != nil {
			return err
		}
		ids, err := s.store.Slots().FutureIDsByServiceTx(ctx, tx, serviceID, s.now())
		if err != nil {
			return err
		}
		// IDs arrive in ascending order, so the resync locks slots in
		// the same deterministic order as every other multi-slot
		// transaction.
		for _, id := range ids {
			if _, err := s.store.Slots().GetForUpdateTx(ctx, tx, id); err != nil {
				return err
			}
			booked, err := s.store.Bookings().ActiveVisitorTotalTx(ctx, tx, id)
			if err != nil {
				return err
			}
			available := newCapacity - booked
			if available < 0 {
				available = 0
			}
			if err := s.store.Slots().SetCapacityTx(ctx, tx, id, newCapacity, available, booked, booked > newCapacity); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetSlotAvailability soft-disables or re-enables a slot.  A disabled
// slot rejects new leases and commits but keeps its ledger and its
// existing bookings intact.
func (s *Service) SetSlotAvailability(ctx context.Context, slotID uint64, available bool) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.store.Slots().GetForUpdateTx(ctx, tx, slotID); err != nil {
			return err
		}
		return s.store.Slots().SetAvailabilityTx(ctx, tx, slotID, available)
	})
}

package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

// AcquireLease holds quantity spots on a slot for the owning session.
// The hold counts against the slot's effective availability until it
// is converted into a booking, released, or expires.
//
// The admission check runs under the slot's exclusive row lock:
// effective availability is the slot's available capacity minus the
// sum of all unexpired leases, and the lease is inserted only when it
// fits.  Without the lock two concurrent callers could both read the
// same effective value and both succeed, oversubscribing the slot.
//
// Expired leases of the slot are swept opportunistically inside the
// same transaction, after the lock is taken, so the sweep never
// touches rows a different slot's transaction could hold.
func (s *Service) AcquireLease(ctx context.Context, slotID uint64, sessionID string, quantity int, ttl time.Duration) (*model.Lease, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if ttl <= 0 {
		ttl = s.leaseTTL
	}

	var lease *model.Lease
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		slot, err := s.store.Slots().GetForUpdateTx(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if !slot.IsAvailable {
			return repository.ErrSlotUnavailable
		}
		s.checkLedger(slot)

		if _, err := s.store.Leases().DeleteExpiredBySlotTx(ctx, tx, slotID, now); err != nil {
			return err
		}
		locked, err := s.store.Leases().ActiveQuantityTx(ctx, tx, slotID, now)
		if err != nil {
			return err
		}
		effective := slot.AvailableCapacity - locked
		if effective < quantity {
			return &repository.InsufficientCapacityError{Available: effective, Requested: quantity}
		}

		lease = &model.Lease{
			SlotID:           slotID,
			SessionID:        sessionID,
			ReservedCapacity: quantity,
			AcquiredAt:       now,
			ExpiresAt:        now.Add(ttl),
		}
		return s.store.Leases().CreateTx(ctx, tx, lease)
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// ValidateLease reports whether the lease exists, is unexpired, and is
// owned by the given session.  The session check prevents one client
// from committing against a hold acquired by another.
func (s *Service) ValidateLease(ctx context.Context, leaseID uint64, sessionID string) (bool, error) {
	valid := false
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		lease, err := s.store.Leases().GetTx(ctx, tx, leaseID)
		if err != nil {
			if errors.Is(err, repository.ErrLeaseNotFound) {
				return nil
			}
			return err
		}
		valid = !lease.Expired(s.now()) && lease.SessionID == sessionID
		return nil
	})
	if err != nil {
		return false, err
	}
	return valid, nil
}

// ReleaseLease deletes a lease, returning its held capacity to the
// effective-availability pool.  The lease must belong to the calling
// session; an empty sessionID is the administrative bypass used by the
// sweeper and by operator tooling.  Idempotent: releasing an absent or
// already-consumed lease succeeds.
func (s *Service) ReleaseLease(ctx context.Context, leaseID uint64, sessionID string) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		lease, err := s.store.Leases().GetTx(ctx, tx, leaseID)
		if err != nil {
			if errors.Is(err, repository.ErrLeaseNotFound) {
				return nil
			}
			return err
		}
		if sessionID != "" && lease.SessionID != sessionID {
			return repository.ErrLeaseMismatch
		}
		return s.store.Leases().DeleteTx(ctx, tx, leaseID)
	})
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
)

// SlotRepo provides data access to the slots table.  The slot row is
// the single contended resource of the reservation core: every
// operation that reads-then-writes a slot's capacity must first take
// the exclusive row lock via GetForUpdateTx and keep it until the
// enclosing transaction commits or rolls back.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, tenant_id, service_id, starts_at, ends_at,
       original_capacity, available_capacity, booked_count,
       is_available, is_overbooked, created_at, updated_at`

func scanSlot(row *sql.Row) (*model.Slot, error) {
	var s model.Slot
	err := row.Scan(
		&s.ID, &s.TenantID, &s.ServiceID, &s.StartsAt, &s.EndsAt,
		&s.OriginalCapacity, &s.AvailableCapacity, &s.BookedCount,
		&s.IsAvailable, &s.IsOverbooked, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetTx loads a slot inside the given transaction without locking it.
// Use GetForUpdateTx before any capacity mutation.
func (r *SlotRepo) GetTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	return scanSlot(tx.QueryRowContext(ctx, q, slotID))
}

// GetForUpdateTx loads a slot and takes an exclusive row lock on it
// for the duration of the transaction.  Concurrent callers contending
// for the same slot serialize here; this is the sole synchronization
// primitive of the admission path and must never be skipped, including
// on fast paths that end up not changing capacity.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ? FOR UPDATE`
	return scanSlot(tx.QueryRowContext(ctx, q, slotID))
}

// ReserveTx permanently commits quantity spots on a locked slot:
// available_capacity decreases (clamped at zero), booked_count
// increases, and is_overbooked is recomputed.  The caller must hold
// the row lock via GetForUpdateTx (which also proves existence) and
// must have verified availability beforehand; the clamp only guards
// the overbooked edge that follows an administrative capacity
// reduction.  Column references on the right-hand side of SET read the
// pre-update values, so the overbooked expression repeats the
// arithmetic instead of referring to the new booked_count.
func (r *SlotRepo) ReserveTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantity int) error {
	const q = `UPDATE slots
	           SET available_capacity = GREATEST(available_capacity - ?, 0),
	               booked_count = booked_count + ?,
	               is_overbooked = (booked_count + ?) > original_capacity
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, quantity, quantity, quantity, slotID)
	return err
}

// ReleaseTx returns quantity spots to a locked slot: booked_count
// decreases (clamped at zero), available_capacity increases but never
// beyond the room the remaining bookings leave under original_capacity,
// and is_overbooked is recomputed.  The two-sided clamp matters on an
// overbooked slot: a partial cancellation there must not reopen
// capacity while the remaining bookings still exceed the original, or
// ordinary commits would oversubscribe the slot again.  Used by
// cancellation and by the old-slot side of a reschedule.  The caller
// must hold the row lock via GetForUpdateTx.  Column references on the
// right-hand side of SET read the pre-update values, so every
// expression repeats the booked_count arithmetic.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, slotID uint64, quantity int) error {
	const q = `UPDATE slots
	           SET available_capacity = GREATEST(
	                   LEAST(available_capacity + ?,
	                         original_capacity - GREATEST(booked_count - ?, 0)),
	                   0),
	               booked_count = GREATEST(booked_count - ?, 0),
	               is_overbooked = GREATEST(booked_count - ?, 0) > original_capacity
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, quantity, quantity, quantity, quantity, slotID)
	return err
}

// SetCapacityTx overwrites a locked slot's full ledger.  It is the
// write half of the capacity resync: the caller recomputes booked
// spots from active bookings (the ground truth) and this method stores
// the derived values.
func (r *SlotRepo) SetCapacityTx(ctx context.Context, tx *sql.Tx, slotID uint64, original, available, booked int, overbooked bool) error {
	const q = `UPDATE slots
	           SET original_capacity = ?, available_capacity = ?,
	               booked_count = ?, is_overbooked = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, original, available, booked, overbooked, slotID)
	return err
}

// FutureIDsByServiceTx returns the IDs of every slot of the service
// whose window starts after the given instant, in ascending ID order
// so that resync locks slots deterministically.
func (r *SlotRepo) FutureIDsByServiceTx(ctx context.Context, tx *sql.Tx, serviceID uint64, after time.Time) ([]uint64, error) {
	const q = `SELECT id FROM slots WHERE service_id = ? AND starts_at > ? ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, serviceID, after.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetAvailabilityTx toggles the soft-disable flag on a slot.  Disabled
// slots reject new admissions but keep their ledger intact.  Callers
// load the slot first, so a missing row surfaces there.
func (r *SlotRepo) SetAvailabilityTx(ctx context.Context, tx *sql.Tx, slotID uint64, available bool) error {
	const q = `UPDATE slots SET is_available = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, available, slotID)
	return err
}

// CreateTx inserts a new slot and populates the generated ID.  New
// slots start with a balanced ledger: available equals original and no
// spots are booked.
func (r *SlotRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Slot) error {
	const q = `INSERT INTO slots
	           (tenant_id, service_id, starts_at, ends_at,
	            original_capacity, available_capacity, booked_count,
	            is_available, is_overbooked)
	           VALUES (?, ?, ?, ?, ?, ?, 0, ?, FALSE)`
	res, err := tx.ExecContext(ctx, q,
		s.TenantID, s.ServiceID, s.StartsAt.UTC(), s.EndsAt.UTC(),
		s.OriginalCapacity, s.OriginalCapacity, s.IsAvailable,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.AvailableCapacity = s.OriginalCapacity
	s.BookedCount = 0
	return nil
}

// ExistsForWindowTx reports whether the service already has a slot
// with the exact same start time.  The slot generator uses this to
// stay idempotent across repeated runs over overlapping date ranges.
func (r *SlotRepo) ExistsForWindowTx(ctx context.Context, tx *sql.Tx, serviceID uint64, startsAt time.Time) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM slots WHERE service_id = ? AND starts_at = ?)`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, serviceID, startsAt.UTC()).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

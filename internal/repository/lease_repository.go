package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
)

// LeaseRepo provides data access to the slot_leases table.  Leases are
// ephemeral rows: every availability computation filters them by
// expires_at, so a lease stops counting the instant it expires whether
// or not the sweeper has deleted it yet.  All timestamps are UTC.
type LeaseRepo struct {
	db *sql.DB
}

// NewLeaseRepo returns a new LeaseRepo bound to the provided database.
func NewLeaseRepo(db *sql.DB) *LeaseRepo { return &LeaseRepo{db: db} }

// CreateTx inserts a new lease within the provided transaction and
// populates the generated ID.  The caller must hold the slot row lock
// and have performed the admission check before inserting; the table
// itself carries no capacity constraint.
func (r *LeaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.Lease) error {
	const q = `INSERT INTO slot_leases (slot_id, session_id, reserved_capacity, acquired_at, expires_at)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		l.SlotID, l.SessionID, l.ReservedCapacity, l.AcquiredAt.UTC(), l.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetTx loads a lease by ID.  It returns the row regardless of expiry;
// callers decide whether an expired lease is ErrLeaseExpired or simply
// stale.  Returns ErrLeaseNotFound when no row exists, which also
// covers leases the sweeper already removed.
func (r *LeaseRepo) GetTx(ctx context.Context, tx *sql.Tx, leaseID uint64) (*model.Lease, error) {
	const q = `SELECT id, slot_id, session_id, reserved_capacity, acquired_at, expires_at
	           FROM slot_leases WHERE id = ?`
	var l model.Lease
	err := tx.QueryRowContext(ctx, q, leaseID).Scan(
		&l.ID, &l.SlotID, &l.SessionID, &l.ReservedCapacity, &l.AcquiredAt, &l.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaseNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ActiveQuantityTx sums the reserved capacity of all unexpired leases
// on a slot as of the given instant.  The caller must hold the slot
// row lock when the result feeds an admission decision, otherwise two
// concurrent callers can both observe the same sum and oversubscribe
// the slot.
func (r *LeaseRepo) ActiveQuantityTx(ctx context.Context, tx *sql.Tx, slotID uint64, now time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(reserved_capacity), 0)
	           FROM slot_leases WHERE slot_id = ? AND expires_at > ?`
	var total int
	if err := tx.QueryRowContext(ctx, q, slotID, now.UTC()).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// DeleteTx removes a lease by ID.  The delete is idempotent: removing
// an absent lease is not an error.
func (r *LeaseRepo) DeleteTx(ctx context.Context, tx *sql.Tx, leaseID uint64) error {
	const q = `DELETE FROM slot_leases WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, leaseID)
	return err
}

// DeleteExpiredBySlotTx removes the expired leases of a single slot
// and returns the number of rows deleted.  The admission path runs
// this opportunistically after taking the slot row lock, so it never
// touches rows another slot's transaction could be holding.
func (r *LeaseRepo) DeleteExpiredBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64, now time.Time) (int, error) {
	const q = `DELETE FROM slot_leases WHERE slot_id = ? AND expires_at <= ?`
	res, err := tx.ExecContext(ctx, q, slotID, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// DeleteExpiredTx removes every lease whose expiry has passed as of
// the given instant and returns the number of rows deleted.  Safe to
// run concurrently with admission paths because those already filter
// by expires_at; the sweep only keeps the table small.
func (r *LeaseRepo) DeleteExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	const q = `DELETE FROM slot_leases WHERE expires_at <= ?`
	res, err := tx.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

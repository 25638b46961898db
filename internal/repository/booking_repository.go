package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
)

// BookingRepo provides data access to the bookings table.  Bookings
// are durable, capacity-decrementing records; they are never hard
// deleted while capacity accounting depends on them.  Cancellation is
// a status transition performed by the service layer, which pairs it
// with a ledger release on the owning slot.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, tenant_id, service_id, slot_id, session_id, visitor_count,
       status, ticket_token, ticket_consumed, ticket_invalidated_by,
       ticket_invalidated_at, price_cents, customer_name, customer_email,
       notes, created_at, updated_at`

func scanBooking(row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var token sql.NullString
	var invBy sql.NullString
	var invAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.TenantID, &b.ServiceID, &b.SlotID, &b.SessionID, &b.VisitorCount,
		&b.Status, &token, &b.TicketConsumed, &invBy,
		&invAt, &b.PriceCents, &b.CustomerName, &b.CustomerEmail,
		&b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if token.Valid {
		t := token.String
		b.TicketToken = &t
	}
	if invBy.Valid {
		v := invBy.String
		b.InvalidatedBy = &v
	}
	if invAt.Valid {
		t := invAt.Time
		b.InvalidatedAt = &t
	}
	return &b, nil
}

// CreateTx inserts a new booking within the provided transaction and
// populates the generated ID.  The caller must hold the slot row lock
// and pair the insert with a ledger decrement in the same transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (tenant_id, service_id, slot_id, session_id, visitor_count,
	            status, ticket_token, price_cents, customer_name, customer_email, notes)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.TenantID, b.ServiceID, b.SlotID, b.SessionID, b.VisitorCount,
		b.Status, b.TicketToken, b.PriceCents, b.CustomerName, b.CustomerEmail, b.Notes,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a booking and takes an exclusive row lock on it
// for the duration of the transaction.  Reschedule and cancellation
// lock the booking before touching any slot so that a second writer
// cannot race the status check.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	return scanBooking(tx.QueryRowContext(ctx, q, bookingID))
}

// UpdateSlotTx moves a booking to a different slot.  Ledger
// re-balancing on both slots is the caller's responsibility and must
// happen in the same transaction.
func (r *BookingRepo) UpdateSlotTx(ctx context.Context, tx *sql.Tx, bookingID, newSlotID uint64) error {
	const q = `UPDATE bookings SET slot_id = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, newSlotID, bookingID)
	return err
}

// UpdatePriceTx overwrites a booking's price.  Used when the price
// recalculation hook changes the price on reschedule.
func (r *BookingRepo) UpdatePriceTx(ctx context.Context, tx *sql.Tx, bookingID uint64, priceCents uint32) error {
	const q = `UPDATE bookings SET price_cents = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, priceCents, bookingID)
	return err
}

// TransitionStatusTx moves a booking from one of the allowed statuses
// to the target status.  It returns true when a row actually changed,
// which is how cancellation stays idempotent: a booking already in a
// terminal status matches no row and the capacity restoration is
// skipped.
func (r *BookingRepo) TransitionStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, from []string, to string) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	q := `UPDATE bookings SET status = ? WHERE id = ? AND status IN (?`
	args := []interface{}{to, bookingID, from[0]}
	for _, s := range from[1:] {
		q += ",?"
		args = append(args, s)
	}
	q += ")"
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InvalidateTicketTx clears the booking's ticket token, marks it
// consumed and stamps who invalidated it and when.  After this the
// prior token can never again pass ticket validation.
func (r *BookingRepo) InvalidateTicketTx(ctx context.Context, tx *sql.Tx, bookingID uint64, actorID string, at time.Time) error {
	const q = `UPDATE bookings
	           SET ticket_token = NULL, ticket_consumed = TRUE,
	               ticket_invalidated_by = ?, ticket_invalidated_at = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, actorID, at.UTC(), bookingID)
	return err
}

// SetTicketTx installs a fresh ticket token on a booking and resets
// the consumed flag.  Used when a ticket is (re)issued after commit or
// reschedule.
func (r *BookingRepo) SetTicketTx(ctx context.Context, tx *sql.Tx, bookingID uint64, token string) error {
	const q = `UPDATE bookings
	           SET ticket_token = ?, ticket_consumed = FALSE,
	               ticket_invalidated_by = NULL, ticket_invalidated_at = NULL
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, token, bookingID)
	return err
}

// GetByTicketForUpdateTx loads the booking holding the given ticket
// token and locks it.  Returns ErrBookingNotFound when no booking
// carries the token, which covers invalidated tickets because
// invalidation clears the token column.
func (r *BookingRepo) GetByTicketForUpdateTx(ctx context.Context, tx *sql.Tx, token string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE ticket_token = ? FOR UPDATE`
	return scanBooking(tx.QueryRowContext(ctx, q, token))
}

// ConsumeTicketTx marks the booking's ticket as consumed.  The caller
// holds the booking row lock and has already verified the consumed
// flag, so a double check-in never passes.
func (r *BookingRepo) ConsumeTicketTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	const q = `UPDATE bookings SET ticket_consumed = TRUE WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, bookingID)
	return err
}

// ActiveVisitorTotalTx sums the visitor counts of all active bookings
// on a slot.  This is the ground truth the capacity resync recomputes
// a slot's ledger from.
func (r *BookingRepo) ActiveVisitorTotalTx(ctx context.Context, tx *sql.Tx, slotID uint64) (int, error) {
	q := `SELECT COALESCE(SUM(visitor_count), 0) FROM bookings WHERE slot_id = ? AND status IN (?`
	args := []interface{}{slotID, model.ActiveStatuses[0]}
	for _, s := range model.ActiveStatuses[1:] {
		q += ",?"
		args = append(args, s)
	}
	q += ")"
	var total int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListBySession returns the bookings created by the given session,
// newest first.  Used by the public surface so a client can review its
// own reservations.
func (r *BookingRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE session_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		var token, invBy sql.NullString
		var invAt sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.TenantID, &b.ServiceID, &b.SlotID, &b.SessionID, &b.VisitorCount,
			&b.Status, &token, &b.TicketConsumed, &invBy,
			&invAt, &b.PriceCents, &b.CustomerName, &b.CustomerEmail,
			&b.Notes, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if token.Valid {
			t := token.String
			b.TicketToken = &t
		}
		if invBy.Valid {
			v := invBy.String
			b.InvalidatedBy = &v
		}
		if invAt.Valid {
			t := invAt.Time
			b.InvalidatedAt = &t
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/avetk/appointment-booking/internal/model"
)

// AuditRepo provides append-only access to the audit_records table.
// The core only ever inserts; records are never mutated or deleted.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// CreateTx appends an audit record within the provided transaction and
// populates the generated ID.  Writing the record inside the same
// transaction as the mutation it describes means an aborted operation
// leaves no audit trail behind.
func (r *AuditRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.AuditRecord) error {
	const q = `INSERT INTO audit_records (booking_id, actor_id, action, old_values, new_values)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, rec.BookingID, rec.ActorID, rec.Action, rec.OldValues, rec.NewValues)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// ListByBooking returns the audit trail of one booking, oldest first.
// A booking's slot history is not retained on the row itself; it is
// recovered from these records.
func (r *AuditRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.AuditRecord, error) {
	const q = `SELECT id, booking_id, actor_id, action, old_values, new_values, created_at
	           FROM audit_records WHERE booking_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AuditRecord, 0)
	for rows.Next() {
		var rec model.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.BookingID, &rec.ActorID, &rec.Action, &rec.OldValues, &rec.NewValues, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

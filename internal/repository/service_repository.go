package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avetk/appointment-booking/internal/model"
)

// ServiceRepo provides data access to the services and service_shifts
// tables.  It acts as the service/tenant directory for the reservation
// core: the configured per-slot capacity lives here and feeds the
// capacity resync when administrators change it.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a new ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// GetTx loads a service by ID inside the given transaction.
func (r *ServiceRepo) GetTx(ctx context.Context, tx *sql.Tx, serviceID uint64) (*model.Service, error) {
	const q = `SELECT id, tenant_id, name, slot_capacity, duration_min, price_cents, is_active, created_at, updated_at
	           FROM services WHERE id = ?`
	var s model.Service
	err := tx.QueryRowContext(ctx, q, serviceID).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.SlotCapacity, &s.DurationMin,
		&s.PriceCents, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SetSlotCapacityTx updates the configured per-slot capacity of a
// service.  Callers pair this with a capacity resync of all future
// slots in the same transaction.
func (r *ServiceRepo) SetSlotCapacityTx(ctx context.Context, tx *sql.Tx, serviceID uint64, capacity int) error {
	const q = `UPDATE services SET slot_capacity = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, capacity, serviceID)
	return err
}

// ShiftsTx returns the recurring weekly windows of a service, ordered
// by weekday and start time.  The slot generator expands these into
// concrete dated slots.
func (r *ServiceRepo) ShiftsTx(ctx context.Context, tx *sql.Tx, serviceID uint64) ([]model.Shift, error) {
	const q = `SELECT id, service_id, weekday, start_time, end_time
	           FROM service_shifts WHERE service_id = ? ORDER BY weekday, start_time`
	rows, err := tx.QueryContext(ctx, q, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shifts []model.Shift
	for rows.Next() {
		var sh model.Shift
		if err := rows.Scan(&sh.ID, &sh.ServiceID, &sh.Weekday, &sh.StartTime, &sh.EndTime); err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

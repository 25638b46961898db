package reservation

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

// IssueTicket installs a fresh ticket token on a booking and returns
// the updated booking.  Called after a reschedule, where the old ticket
// was invalidated inside the reschedule transaction and the replacement
// is issued in a separate, short transaction of its own.  A booking
// holds at most one valid ticket at any time; issuing replaces whatever
// token existed.
func (s *Service) IssueTicket(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	token := uuid.NewString()
	var booking *model.Booking
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.store.Bookings().GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !b.Active() {
			return repository.ErrInvalidStatus
		}
		if err := s.store.Bookings().SetTicketTx(ctx, tx, bookingID, token); err != nil {
			return err
		}
		b.TicketToken = &token
		b.TicketConsumed = false
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CheckInTicket validates a ticket token and consumes it, moving the
// booking to CHECKED_IN.  A token invalidated by a reschedule no
// longer matches any booking (invalidation clears the column), and a
// token already consumed fails with ErrTicketConsumed, so each issued
// ticket admits exactly once.
func (s *Service) CheckInTicket(ctx context.Context, token string) (*model.Booking, error) {
	var booking *model.Booking
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		b, err := s.store.Bookings().GetByTicketForUpdateTx(ctx, tx, token)
		if err != nil {
			return err
		}
		if b.TicketConsumed {
			return repository.ErrTicketConsumed
		}
		if !b.Active() {
			return repository.ErrInvalidStatus
		}
		if err := s.store.Bookings().ConsumeTicketTx(ctx, tx, b.ID); err != nil {
			return err
		}
		if _, err := s.store.Bookings().TransitionStatusTx(ctx, tx, b.ID,
			[]string{model.StatusPending, model.StatusConfirmed}, model.StatusCheckedIn); err != nil {
			return err
		}
		b.TicketConsumed = true
		b.Status = model.StatusCheckedIn
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

package reservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

func TestCheckInTicket(t *testing.T) {
	ctx := context.Background()
	svc, f, _, slotID := newTestEnv(5)

	booking, err := svc.CommitBooking(ctx, CommitRequest{
		SlotID: slotID, SessionID: "sess-a", VisitorCount: 2,
		CustomerName: "Ada", CustomerEmail: "ada@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, booking.TicketToken)

	checked, err := svc.CheckInTicket(ctx, *booking.TicketToken)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, checked.Status)

	// A ticket admits exactly once.
	_, err = svc.CheckInTicket(ctx, *booking.TicketToken)
	assert.ErrorIs(t, err, repository.ErrTicketConsumed)

	// Unknown token.
	_, err = svc.CheckInTicket(ctx, "ffffffff-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	// Checked-in does not release capacity.
	slot := f.slotByID(slotID)
	assert.Equal(t, 2, slot.BookedCount)
}

func TestIssueTicketAfterReschedule(t *testing.T) {
	ctx := context.Background()
	svc, f, _, slotB, booking := rescheduleEnv(t, 5, 2)

	oldToken := *booking.TicketToken

	result, err := svc.Reschedule(ctx, booking.ID, slotB, "admin-1")
	require.NoError(t, err)
	require.True(t, result.TicketsInvalidated)

	// The invalidated token no longer admits anyone.
	_, err = svc.CheckInTicket(ctx, oldToken)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	reissued, err := svc.IssueTicket(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, reissued.TicketToken)
	assert.NotEqual(t, oldToken, *reissued.TicketToken)

	// Exactly one valid ticket exists for the booking: the new one.
	checked, err := svc.CheckInTicket(ctx, *reissued.TicketToken)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, checked.ID)
	assert.Equal(t, model.StatusCheckedIn, f.bookingByID(booking.ID).Status)
}

func TestIssueTicketRejectsTerminalBooking(t *testing.T) {
	ctx := context.Background()
	svc, _, _, slotID := newTestEnv(5)

	booking, err := svc.CommitBooking(ctx, CommitRequest{
		SlotID: slotID, SessionID: "sess-a", VisitorCount: 1,
		CustomerName: "Ada", CustomerEmail: "ada@example.com",
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelBooking(ctx, booking.ID, "sess-a"))

	_, err = svc.IssueTicket(ctx, booking.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidStatus)
}

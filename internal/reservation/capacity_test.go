package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetk/appointment-booking/internal/repository"
)

func TestGetEffectiveCapacity(t *testing.T) {
	ctx := context.Background()
	svc, _, clock, slotID := newTestEnv(5)

	cap, err := svc.GetEffectiveCapacity(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 5, cap.Available)
	assert.Equal(t, 0, cap.Locked)
	assert.Equal(t, 5, cap.Effective)

	_, err = svc.AcquireLease(ctx, slotID, "sess-a", 2, time.Minute)
	require.NoError(t, err)

	cap, err = svc.GetEffectiveCapacity(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 2, cap.Locked)
	assert.Equal(t, 3, cap.Effective)

	// Expiry is observed immediately, without any sweep.
	clock.Advance(2 * time.Minute)
	cap, err = svc.GetEffectiveCapacity(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 0, cap.Locked)
	assert.Equal(t, 5, cap.Effective)

	_, err = svc.GetEffectiveCapacity(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestResyncServiceCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("raising capacity reopens spots", func(t *testing.T) {
		svc, f, _, slotID := newTestEnv(5)

		_, err := svc.CommitBooking(ctx, CommitRequest{
			SlotID: slotID, SessionID: "sess-a", VisitorCount: 4,
			CustomerName: "Ada", CustomerEmail: "ada@example.com",
		})
		require.NoError(t, err)

		updated, err := svc.ResyncServiceCapacity(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, updated)

		slot := f.slotByID(slotID)
		assert.Equal(t, 10, slot.OriginalCapacity)
		assert.Equal(t, 6, slot.AvailableCapacity)
		assert.Equal(t, 4, slot.BookedCount)
		assert.False(t, slot.IsOverbooked)
	})

	t.Run("reduction below booked flags the slot overbooked", func(t *testing.T) {
		svc, f, _, slotID := newTestEnv(5)

		_, err := svc.CommitBooking(ctx, CommitRequest{
			SlotID: slotID, SessionID: "sess-a", VisitorCount: 3,
			CustomerName: "Ada", CustomerEmail: "ada@example.com",
		})
		require.NoError(t, err)

		_, err = svc.ResyncServiceCapacity(ctx, 1, 2)
		require.NoError(t, err)

		slot := f.slotByID(slotID)
		assert.Equal(t, 2, slot.OriginalCapacity)
		assert.Equal(t, 0, slot.AvailableCapacity)
		assert.Equal(t, 3, slot.BookedCount)
		assert.True(t, slot.IsOverbooked)
		assert.True(t, slot.LedgerConsistent())

		// No new admissions on an overbooked slot.
		_, err = svc.AcquireLease(ctx, slotID, "sess-b", 1, 0)
		assert.ErrorAs(t, err, new(*repository.InsufficientCapacityError))

		// Cancelling the booking drains the overbooking.
		require.NoError(t, svc.CancelBooking(ctx, f.bookingByID(1).ID, ""))
		slot = f.slotByID(slotID)
		assert.Equal(t, 2, slot.AvailableCapacity)
		assert.Equal(t, 0, slot.BookedCount)
		assert.False(t, slot.IsOverbooked)
	})

	t.Run("cancelled bookings do not count as ground truth", func(t *testing.T) {
		svc, f, _, slotID := newTestEnv(5)

		booking, err := svc.CommitBooking(ctx, CommitRequest{
			SlotID: slotID, SessionID: "sess-a", VisitorCount: 2,
			CustomerName: "Ada", CustomerEmail: "ada@example.com",
		})
		require.NoError(t, err)
		require.NoError(t, svc.CancelBooking(ctx, booking.ID, "sess-a"))

		_, err = svc.ResyncServiceCapacity(ctx, 1, 5)
		require.NoError(t, err)

		slot := f.slotByID(slotID)
		assert.Equal(t, 5, slot.AvailableCapacity)
		assert.Equal(t, 0, slot.BookedCount)
	})

	t.Run("rejects unknown service and negative capacity", func(t *testing.T) {
		svc, _, _, _ := newTestEnv(5)

		_, err := svc.ResyncServiceCapacity(ctx, 999, 5)
		assert.ErrorIs(t, err, repository.ErrServiceNotFound)

		_, err = svc.ResyncServiceCapacity(ctx, 1, -1)
		assert.Error(t, err)
	})
}

func TestSetSlotAvailability(t *testing.T) {
	ctx := context.Background()
	svc, f, _, slotID := newTestEnv(5)

	require.NoError(t, svc.SetSlotAvailability(ctx, slotID, false))
	assert.False(t, f.slotByID(slotID).IsAvailable)

	require.NoError(t, svc.SetSlotAvailability(ctx, slotID, true))
	assert.True(t, f.slotByID(slotID).IsAvailable)

	assert.ErrorIs(t, svc.SetSlotAvailability(ctx, 999, false), repository.ErrSlotNotFound)
}

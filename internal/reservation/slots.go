package reservation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
)

// GenerateSlots expands a service's recurring weekly shifts into
// concrete dated slots between from and to (inclusive dates, UTC).
// Each generated slot starts with the service's configured per-slot
// capacity and a balanced ledger.  Generation is idempotent: a window
// whose start time already has a slot is skipped, so re-running over
// an overlapping range never duplicates slots or disturbs ledgers that
// bookings have already touched.  Returns the number of slots created.
func (s *Service) GenerateSlots(ctx context.Context, serviceID uint64, from, to time.Time) (int, error) {
	if to.Before(from) {
		return 0, fmt.Errorf("invalid range: %s is before %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	created := 0
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		svc, err := s.store.Services().GetTx(ctx, tx, serviceID)
		if err != nil {
			return err
		}
		shifts, err := s.store.Services().ShiftsTx(ctx, tx, serviceID)
		if err != nil {
			return err
		}
		if len(shifts) == 0 {
			return nil
		}
		byWeekday := make(map[int][]model.Shift)
		for _, sh := range shifts {
			byWeekday[sh.Weekday] = append(byWeekday[sh.Weekday], sh)
		}

		day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		for !day.After(end) {
			for _, sh := range byWeekday[int(day.Weekday())] {
				startsAt, err := atWallClock(day, sh.StartTime)
				if err != nil {
					return err
				}
				endsAt, err := atWallClock(day, sh.EndTime)
				if err != nil {
					return err
				}
				exists, err := s.store.Slots().ExistsForWindowTx(ctx, tx, serviceID, startsAt)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				slot := &model.Slot{
					TenantID:         svc.TenantID,
					ServiceID:        svc.ID,
					StartsAt:         startsAt,
					EndsAt:           endsAt,
					OriginalCapacity: svc.SlotCapacity,
					IsAvailable:      true,
				}
				if err := s.store.Slots().CreateTx(ctx, tx, slot); err != nil {
					return err
				}
				created++
			}
			day = day.AddDate(0, 0, 1)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// atWallClock combines a UTC date with an "HH:MM" wall-clock string.
func atWallClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid shift time %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

package reservation

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepExpiredLeases deletes every lease whose expiry has passed and
// returns the number of leases removed.  The sweep is an optimization
// that keeps the lease table small, not a correctness requirement:
// every capacity read already filters leases by expiry, so it is safe
// to run concurrently with lease acquisition, commits and reschedules.
func (s *Service) SweepExpiredLeases(ctx context.Context) (int, error) {
	count := 0
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := s.store.Leases().DeleteExpiredTx(ctx, tx, s.now())
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// StartSweeper schedules SweepExpiredLeases on a fixed interval and
// starts the scheduler.  The returned scheduler should be shut down on
// process exit.
func (s *Service) StartSweeper(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := s.SweepExpiredLeases(ctx)
			if err != nil {
				log.Printf("lease-sweeper: sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("lease-sweeper: removed %d expired leases", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	log.Printf("lease-sweeper: running every %s", interval)
	return sched, nil
}

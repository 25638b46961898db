package reservation

import (
	"sync"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
)

// testClock is a mutable time source so tests can cross lease expiry
// boundaries without sleeping.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestEnv builds a Service over a fresh fake store with a seeded
// service and one slot of the given capacity.  It returns the service,
// the store, the clock and the seeded slot ID.
func newTestEnv(capacity int, opts ...Option) (*Service, *fakeStore, *testClock, uint64) {
	f := newFakeStore()
	clock := newTestClock()
	svcID := f.seedService(model.Service{
		ID:           1,
		TenantID:     1,
		Name:         "consultation",
		SlotCapacity: capacity,
		DurationMin:  30,
		PriceCents:   2500,
		IsActive:     true,
	})
	slotID := f.seedSlot(model.Slot{
		TenantID:         1,
		ServiceID:        svcID,
		StartsAt:         clock.Now().Add(24 * time.Hour),
		EndsAt:           clock.Now().Add(24*time.Hour + 30*time.Minute),
		OriginalCapacity: capacity,
		IsAvailable:      true,
	})
	all := append([]Option{WithClock(clock.Now)}, opts...)
	return New(f, all...), f, clock, slotID
}

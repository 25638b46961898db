package reservation

import (
	"log"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
)

// DefaultLeaseTTL is how long an acquired lease counts against
// availability when the caller does not request a custom TTL.
const DefaultLeaseTTL = 120 * time.Second

// PriceCalculator decides the price of a booking after a reschedule.
// The default keeps the old price; deployments plug in their own rule.
type PriceCalculator func(b *model.Booking, oldSlot, newSlot *model.Slot) uint32

// SamePrice is the default PriceCalculator.
func SamePrice(b *model.Booking, _, _ *model.Slot) uint32 { return b.PriceCents }

// Service implements the reservation core operations over a Store.
// All mutating operations run inside a single store transaction; the
// zero observable states are "nothing happened" and "everything
// happened".
type Service struct {
	store    Store
	now      func() time.Time
	leaseTTL time.Duration
	pricer   PriceCalculator
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.  Tests use this to cross lease
// expiry boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLeaseTTL overrides the default lease TTL.
func WithLeaseTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.leaseTTL = d
		}
	}
}

// WithPriceCalculator installs a price recalculation hook for
// reschedules.
func WithPriceCalculator(p PriceCalculator) Option {
	return func(s *Service) {
		if p != nil {
			s.pricer = p
		}
	}
}

// New constructs a reservation Service over the given store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		leaseTTL: DefaultLeaseTTL,
		pricer:   SamePrice,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkLedger verifies the capacity equation on a freshly loaded slot.
// A violation outside the resync window is a fatal accounting error:
// it is logged loudly so operators can trigger a resync, but the
// current operation proceeds against the stored values rather than
// guessing which counter is wrong.
func (s *Service) checkLedger(slot *model.Slot) {
	if !slot.LedgerConsistent() {
		log.Printf("reservation: LEDGER INVARIANT VIOLATION slot=%d original=%d available=%d booked=%d; capacity resync required",
			slot.ID, slot.OriginalCapacity, slot.AvailableCapacity, slot.BookedCount)
	}
}

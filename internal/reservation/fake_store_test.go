package reservation

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/avetk/appointment-booking/internal/model"
	"github.com/avetk/appointment-booking/internal/repository"
)

// fakeStore is an in-memory Store for exercising the reservation core
// without a database.  WithTx serializes callers on a mutex and snapshots
// the state before running fn, restoring the snapshot on error.  That
// reproduces the two properties the core leans on in production: mutating
// transactions are serialized per contended row, and a failed transaction
// leaves no partial writes behind.  The *sql.Tx passed to fn is always
// nil; the substores ignore it.
type fakeStore struct {
	mu sync.Mutex
	st *fakeState
}

type fakeState struct {
	slots    map[uint64]*model.Slot
	leases   map[uint64]*model.Lease
	bookings map[uint64]*model.Booking
	audits   []model.AuditRecord
	services map[uint64]*model.Service
	shifts   map[uint64][]model.Shift

	nextSlotID    uint64
	nextLeaseID   uint64
	nextBookingID uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{st: &fakeState{
		slots:    map[uint64]*model.Slot{},
		leases:   map[uint64]*model.Lease{},
		bookings: map[uint64]*model.Booking{},
		services: map[uint64]*model.Service{},
		shifts:   map[uint64][]model.Shift{},
	}}
}

func (f *fakeState) clone() *fakeState {
	c := &fakeState{
		slots:         make(map[uint64]*model.Slot, len(f.slots)),
		leases:        make(map[uint64]*model.Lease, len(f.leases)),
		bookings:      make(map[uint64]*model.Booking, len(f.bookings)),
		audits:        append([]model.AuditRecord(nil), f.audits...),
		services:      make(map[uint64]*model.Service, len(f.services)),
		shifts:        make(map[uint64][]model.Shift, len(f.shifts)),
		nextSlotID:    f.nextSlotID,
		nextLeaseID:   f.nextLeaseID,
		nextBookingID: f.nextBookingID,
	}
	for id, s := range f.slots {
		cp := *s
		c.slots[id] = &cp
	}
	for id, l := range f.leases {
		cp := *l
		c.leases[id] = &cp
	}
	for id, b := range f.bookings {
		cp := *b
		c.bookings[id] = &cp
	}
	for id, s := range f.services {
		cp := *s
		c.services[id] = &cp
	}
	for id, sh := range f.shifts {
		c.shifts[id] = append([]model.Shift(nil), sh...)
	}
	return c
}

func (f *fakeStore) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.st.clone()
	if err := fn(nil); err != nil {
		f.st = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) Slots() SlotStore       { return fakeSlots{f} }
func (f *fakeStore) Leases() LeaseStore     { return fakeLeases{f} }
func (f *fakeStore) Bookings() BookingStore { return fakeBookings{f} }
func (f *fakeStore) Audits() AuditStore     { return fakeAudits{f} }
func (f *fakeStore) Services() ServiceStore { return fakeServices{f} }

// seedService registers a service and returns its ID.
func (f *fakeStore) seedService(svc model.Service) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if svc.ID == 0 {
		svc.ID = uint64(len(f.st.services) + 1)
	}
	f.st.services[svc.ID] = &svc
	return svc.ID
}

// seedSlot registers a slot with a balanced ledger and returns its ID.
func (f *fakeStore) seedSlot(s model.Slot) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.nextSlotID++
	s.ID = f.st.nextSlotID
	if s.AvailableCapacity == 0 && s.BookedCount == 0 {
		s.AvailableCapacity = s.OriginalCapacity
	}
	f.st.slots[s.ID] = &s
	return s.ID
}

func (f *fakeStore) seedShifts(serviceID uint64, shifts ...model.Shift) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.shifts[serviceID] = append(f.st.shifts[serviceID], shifts...)
}

// slotByID returns a copy of a slot for assertions.
func (f *fakeStore) slotByID(id uint64) model.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.st.slots[id]
}

func (f *fakeStore) bookingByID(id uint64) model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.st.bookings[id]
}

func (f *fakeStore) leaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.st.leases)
}

func (f *fakeStore) auditRecords() []model.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AuditRecord(nil), f.st.audits...)
}

type fakeSlots struct{ f *fakeStore }

func (s fakeSlots) GetTx(_ context.Context, _ *sql.Tx, slotID uint64) (*model.Slot, error) {
	slot, ok := s.f.st.slots[slotID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (s fakeSlots) GetForUpdateTx(ctx context.Context, tx *sql.Tx, slotID uint64) (*model.Slot, error) {
	return s.GetTx(ctx, tx, slotID)
}

func (s fakeSlots) ReserveTx(_ context.Context, _ *sql.Tx, slotID uint64, quantity int) error {
	slot, ok := s.f.st.slots[slotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	slot.AvailableCapacity -= quantity
	if slot.AvailableCapacity < 0 {
		slot.AvailableCapacity = 0
	}
	slot.BookedCount += quantity
	slot.IsOverbooked = slot.BookedCount > slot.OriginalCapacity
	return nil
}

func (s fakeSlots) ReleaseTx(_ context.Context, _ *sql.Tx, slotID uint64, quantity int) error {
	slot, ok := s.f.st.slots[slotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	booked := slot.BookedCount - quantity
	if booked < 0 {
		booked = 0
	}
	// Credit availability only up to the room the remaining bookings
	// leave, so a partial cancellation on an overbooked slot never
	// reopens spots that are still committed elsewhere.
	slot.AvailableCapacity += quantity
	if room := slot.OriginalCapacity - booked; slot.AvailableCapacity > room {
		slot.AvailableCapacity = room
	}
	if slot.AvailableCapacity < 0 {
		slot.AvailableCapacity = 0
	}
	slot.BookedCount = booked
	slot.IsOverbooked = slot.BookedCount > slot.OriginalCapacity
	return nil
}

func (s fakeSlots) SetCapacityTx(_ context.Context, _ *sql.Tx, slotID uint64, original, available, booked int, overbooked bool) error {
	slot, ok := s.f.st.slots[slotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	slot.OriginalCapacity = original
	slot.AvailableCapacity = available
	slot.BookedCount = booked
	slot.IsOverbooked = overbooked
	return nil
}

func (s fakeSlots) SetAvailabilityTx(_ context.Context, _ *sql.Tx, slotID uint64, available bool) error {
	slot, ok := s.f.st.slots[slotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	slot.IsAvailable = available
	return nil
}

func (s fakeSlots) FutureIDsByServiceTx(_ context.Context, _ *sql.Tx, serviceID uint64, after time.Time) ([]uint64, error) {
	var ids []uint64
	for id, slot := range s.f.st.slots {
		if slot.ServiceID == serviceID && slot.StartsAt.After(after) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s fakeSlots) CreateTx(_ context.Context, _ *sql.Tx, slot *model.Slot) error {
	s.f.st.nextSlotID++
	slot.ID = s.f.st.nextSlotID
	slot.AvailableCapacity = slot.OriginalCapacity
	slot.BookedCount = 0
	cp := *slot
	s.f.st.slots[slot.ID] = &cp
	return nil
}

func (s fakeSlots) ExistsForWindowTx(_ context.Context, _ *sql.Tx, serviceID uint64, startsAt time.Time) (bool, error) {
	for _, slot := range s.f.st.slots {
		if slot.ServiceID == serviceID && slot.StartsAt.Equal(startsAt) {
			return true, nil
		}
	}
	return false, nil
}

type fakeLeases struct{ f *fakeStore }

func (l fakeLeases) CreateTx(_ context.Context, _ *sql.Tx, lease *model.Lease) error {
	l.f.st.nextLeaseID++
	lease.ID = l.f.st.nextLeaseID
	cp := *lease
	l.f.st.leases[lease.ID] = &cp
	return nil
}

func (l fakeLeases) GetTx(_ context.Context, _ *sql.Tx, leaseID uint64) (*model.Lease, error) {
	lease, ok := l.f.st.leases[leaseID]
	if !ok {
		return nil, repository.ErrLeaseNotFound
	}
	cp := *lease
	return &cp, nil
}

func (l fakeLeases) ActiveQuantityTx(_ context.Context, _ *sql.Tx, slotID uint64, now time.Time) (int, error) {
	total := 0
	for _, lease := range l.f.st.leases {
		if lease.SlotID == slotID && lease.ExpiresAt.After(now) {
			total += lease.ReservedCapacity
		}
	}
	return total, nil
}

func (l fakeLeases) DeleteTx(_ context.Context, _ *sql.Tx, leaseID uint64) error {
	delete(l.f.st.leases, leaseID)
	return nil
}

func (l fakeLeases) DeleteExpiredBySlotTx(_ context.Context, _ *sql.Tx, slotID uint64, now time.Time) (int, error) {
	n := 0
	for id, lease := range l.f.st.leases {
		if lease.SlotID == slotID && !lease.ExpiresAt.After(now) {
			delete(l.f.st.leases, id)
			n++
		}
	}
	return n, nil
}

func (l fakeLeases) DeleteExpiredTx(_ context.Context, _ *sql.Tx, now time.Time) (int, error) {
	n := 0
	for id, lease := range l.f.st.leases {
		if !lease.ExpiresAt.After(now) {
			delete(l.f.st.leases, id)
			n++
		}
	}
	return n, nil
}

type fakeBookings struct{ f *fakeStore }

func (b fakeBookings) CreateTx(_ context.Context, _ *sql.Tx, booking *model.Booking) error {
	b.f.st.nextBookingID++
	booking.ID = b.f.st.nextBookingID
	cp := *booking
	b.f.st.bookings[booking.ID] = &cp
	return nil
}

func (b fakeBookings) GetForUpdateTx(_ context.Context, _ *sql.Tx, bookingID uint64) (*model.Booking, error) {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *booking
	return &cp, nil
}

func (b fakeBookings) UpdateSlotTx(_ context.Context, _ *sql.Tx, bookingID, newSlotID uint64) error {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.SlotID = newSlotID
	return nil
}

func (b fakeBookings) UpdatePriceTx(_ context.Context, _ *sql.Tx, bookingID uint64, priceCents uint32) error {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.PriceCents = priceCents
	return nil
}

func (b fakeBookings) TransitionStatusTx(_ context.Context, _ *sql.Tx, bookingID uint64, from []string, to string) (bool, error) {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if booking.Status == st {
			booking.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (b fakeBookings) InvalidateTicketTx(_ context.Context, _ *sql.Tx, bookingID uint64, actorID string, at time.Time) error {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.TicketToken = nil
	booking.TicketConsumed = true
	booking.InvalidatedBy = &actorID
	booking.InvalidatedAt = &at
	return nil
}

func (b fakeBookings) SetTicketTx(_ context.Context, _ *sql.Tx, bookingID uint64, token string) error {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.TicketToken = &token
	booking.TicketConsumed = false
	return nil
}

func (b fakeBookings) GetByTicketForUpdateTx(_ context.Context, _ *sql.Tx, token string) (*model.Booking, error) {
	for _, booking := range b.f.st.bookings {
		if booking.TicketToken != nil && *booking.TicketToken == token {
			cp := *booking
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (b fakeBookings) ConsumeTicketTx(_ context.Context, _ *sql.Tx, bookingID uint64) error {
	booking, ok := b.f.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	booking.TicketConsumed = true
	return nil
}

func (b fakeBookings) ActiveVisitorTotalTx(_ context.Context, _ *sql.Tx, slotID uint64) (int, error) {
	total := 0
	for _, booking := range b.f.st.bookings {
		if booking.SlotID == slotID && booking.Active() {
			total += booking.VisitorCount
		}
	}
	return total, nil
}

type fakeAudits struct{ f *fakeStore }

func (a fakeAudits) CreateTx(_ context.Context, _ *sql.Tx, rec *model.AuditRecord) error {
	rec.ID = uint64(len(a.f.st.audits) + 1)
	a.f.st.audits = append(a.f.st.audits, *rec)
	return nil
}

type fakeServices struct{ f *fakeStore }

func (s fakeServices) GetTx(_ context.Context, _ *sql.Tx, serviceID uint64) (*model.Service, error) {
	svc, ok := s.f.st.services[serviceID]
	if !ok {
		return nil, repository.ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s fakeServices) SetSlotCapacityTx(_ context.Context, _ *sql.Tx, serviceID uint64, capacity int) error {
	svc, ok := s.f.st.services[serviceID]
	if !ok {
		return repository.ErrServiceNotFound
	}
	svc.SlotCapacity = capacity
	return nil
}

func (s fakeServices) ShiftsTx(_ context.Context, _ *sql.Tx, serviceID uint64) ([]model.Shift, error) {
	return append([]model.Shift(nil), s.f.st.shifts[serviceID]...), nil
}

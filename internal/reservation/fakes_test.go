package reservation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// memShows is an in-memory ShowStore with the same version contract as
// repository.ShowRepo.
type memShows struct {
	mu     sync.Mutex
	shows  map[string]*model.Show
	writes int
	// BeforeUpdate runs inside UpdateOccupancy before the version check.
	BeforeUpdate func(s *model.Show)
}

func newMemShows(shows ...*model.Show) *memShows {
	m := &memShows{shows: map[string]*model.Show{}}
	for _, s := range shows {
		if s.OccupiedSeats == nil {
			s.OccupiedSeats = map[string]string{}
		}
		m.shows[s.ID] = s.Clone()
	}
	return m
}

func (m *memShows) GetByID(_ context.Context, id string) (*model.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return s.Clone(), nil
}

func (m *memShows) UpdateOccupancy(_ context.Context, s *model.Show) error {
	if m.BeforeUpdate != nil {
		m.BeforeUpdate(s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.shows[s.ID]
	if !ok {
		return repository.ErrShowNotFound
	}
	if cur.Version != s.Version {
		return repository.ErrVersionConflict
	}
	next := s.Clone()
	next.Version++
	m.shows[s.ID] = next
	s.Version++
	m.writes++
	return nil
}

// bump simulates a writer in another process.
func (m *memShows) bump(id string, mutate func(occ map[string]string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.shows[id].Clone()
	mutate(s.OccupiedSeats)
	s.Version++
	m.shows[id] = s
}

func (m *memShows) setPrice(id string, cents model.Cents) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows[id].PriceCents = cents
}

func (m *memShows) occupancy(id string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows[id].Clone().OccupiedSeats
}

func (m *memShows) version(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows[id].Version
}

// memBookings is an in-memory BookingStore.
type memBookings struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{bookings: map[string]*model.Booking{}}
}

func cloneBooking(b *model.Booking) *model.Booking {
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	return &cp
}

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; ok {
		return repository.ErrConflict
	}
	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (m *memBookings) SetPayment(_ context.Context, id, ref, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.PaymentRef, b.PaymentURL = ref, url
	return nil
}

func (m *memBookings) MarkPaid(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	b.Status = model.BookingPaid
	b.PaidAt = &at
	return true, nil
}

func (m *memBookings) MarkReleasing(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	b.Status = model.BookingReleasing
	return true, nil
}

func (m *memBookings) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status == model.BookingPaid {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

func (m *memBookings) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memBookings) put(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = cloneBooking(b)
}

type scheduled struct {
	BookingID string
	FireAt    time.Time
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduled
	err   error
}

func (f *fakeScheduler) Schedule(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduled{id, at})
	return f.err
}

func (f *fakeScheduler) all() []scheduled {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduled(nil), f.calls...)
}

type fakeGateway struct {
	mu   sync.Mutex
	reqs []payment.CheckoutRequest
	err  error
}

func (f *fakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Checkout{Reference: "cs_" + req.BookingID, URL: "https://pay.test/" + req.BookingID}, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (f *fakeEvents) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeEvents) all() []queue.BookingConfirmedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.BookingConfirmedEvent(nil), f.events...)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

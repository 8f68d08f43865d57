package memory

import (
	"sync"
	"time"

	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

// Store keeps committed aggregates. Readers get copies, so a unit of work
// never sees another unit's uncommitted changes.
type Store struct {
	mu       sync.RWMutex
	listings map[domainlistings.ListingID]*domainlistings.Listing
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	reviews  map[domainbooking.BookingID]*domainreviews.Review

	policy domainavailability.Policy
	clock  func() time.Time
	outbox *Outbox
}

type Option func(*Store)

// WithPolicy sets the overlap rules enforced when a unit commits.
func WithPolicy(policy domainavailability.Policy) Option {
	return func(s *Store) { s.policy = policy }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithOutbox makes committed units hand their staged events to box.
func WithOutbox(box *Outbox) Option {
	return func(s *Store) { s.outbox = box }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		listings: make(map[domainlistings.ListingID]*domainlistings.Listing),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		reviews:  make(map[domainbooking.BookingID]*domainreviews.Review),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.ClearEvents()
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Price = b.Price.Copy()
	c.ClearEvents()
	return &c
}

func cloneReview(r *domainreviews.Review) *domainreviews.Review {
	if r == nil {
		return nil
	}
	c := *r
	c.ClearEvents()
	return &c
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appoutbox "doorly/internal/app/outbox"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
)

// Factory starts units against a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:    f.Store,
		readOnly: opts.ReadOnly,
		listings: make(map[domainlistings.ListingID]staged[*domainlistings.Listing]),
		bookings: make(map[domainbooking.BookingID]staged[*domainbooking.Booking]),
		reviews:  make(map[domainbooking.BookingID]*domainreviews.Review),
	}, nil
}

type staged[T any] struct {
	value       T
	baseVersion int64
}

// Unit buffers writes and applies them atomically on Commit. Commit re-checks
// versions and the listing calendar against what other units committed in the
// meantime.
type Unit struct {
	store    *Store
	readOnly bool

	mu       sync.Mutex
	done     bool
	listings map[domainlistings.ListingID]staged[*domainlistings.Listing]
	bookings map[domainbooking.BookingID]staged[*domainbooking.Booking]
	reviews  map[domainbooking.BookingID]*domainreviews.Review
	records  []appoutbox.EventRecord
}

func (u *Unit) Listings() domainlistings.ListingRepository { return listingView{u} }

func (u *Unit) Bookings() domainbooking.Repository { return bookingView{u} }

func (u *Unit) Reviews() domainreviews.Repository { return reviewView{u} }

// LockListing is a no-op: the commit-time calendar check is the authority for
// this store.
func (u *Unit) LockListing(ctx context.Context, _ domainlistings.ListingID) error {
	return ctx.Err()
}

func (u *Unit) stage(rec appoutbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.records = append(u.records, rec)
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := u.checkVersions(); err != nil {
		return err
	}
	if err := u.checkCalendars(); err != nil {
		return err
	}
	for id, rv := range u.reviews {
		if existing, ok := s.reviews[id]; ok && existing.ID != rv.ID {
			return domainreviews.ErrAlreadyReviewed
		}
	}

	for id, st := range u.listings {
		l := cloneListing(st.value)
		l.Version = st.baseVersion + 1
		s.listings[id] = l
	}
	for id, st := range u.bookings {
		b := cloneBooking(st.value)
		b.Version = st.baseVersion + 1
		s.bookings[id] = b
	}
	for id, rv := range u.reviews {
		s.reviews[id] = cloneReview(rv)
	}
	if s.outbox != nil && len(u.records) > 0 {
		s.outbox.append(u.records...)
	}
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.records = nil
	return nil
}

func (u *Unit) checkVersions() error {
	s := u.store
	for id, st := range u.listings {
		if current, ok := s.listings[id]; ok && current.Version != st.baseVersion {
			return fmt.Errorf("%w: listing %s", domainbooking.ErrConcurrentModification, id)
		}
	}
	for id, st := range u.bookings {
		current, ok := s.bookings[id]
		if (ok && current.Version != st.baseVersion) || (!ok && st.baseVersion != 0) {
			return fmt.Errorf("%w: booking %s", domainbooking.ErrConcurrentModification, id)
		}
	}
	return nil
}

// checkCalendars rejects the commit when a booking that starts blocking in
// this unit overlaps one that blocks in the committed state.
func (u *Unit) checkCalendars() error {
	s := u.store
	now := s.now()
	for id, st := range u.bookings {
		b := st.value
		if !b.BlocksAt(now) {
			continue
		}
		if previous, ok := s.bookings[id]; ok && previous.BlocksAt(now) && sameRange(previous, b) {
			continue
		}
		others := make([]*domainbooking.Booking, 0)
		for otherID, other := range s.bookings {
			if other.ListingID != b.ListingID || otherID == id {
				continue
			}
			if mine, ok := u.bookings[otherID]; ok {
				others = append(others, mine.value)
				continue
			}
			others = append(others, other)
		}
		for otherID, mine := range u.bookings {
			if _, committed := s.bookings[otherID]; !committed && otherID != id && mine.value.ListingID == b.ListingID {
				others = append(others, mine.value)
			}
		}
		index := domainavailability.Build(b.ListingID, others, s.policy, now)
		if err := index.Check(b.Range); err != nil {
			return err
		}
	}
	return nil
}

func sameRange(a, b *domainbooking.Booking) bool {
	return a.Range.Start.Equal(b.Range.Start) && a.Range.End.Equal(b.Range.End)
}

var _ uow.UoWFactory = Factory{}

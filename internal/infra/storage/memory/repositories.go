package memory

import (
	"context"
	"sort"
	"strings"

	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

// Views read through the unit's staged writes to the committed store.

type listingView struct{ u *Unit }

func (v listingView) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.u.mu.Lock()
	st, ok := v.u.listings[id]
	v.u.mu.Unlock()
	if ok {
		return cloneListing(st.value), nil
	}
	s := v.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

func (v listingView) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if v.u.done {
		return ErrUnitClosed
	}
	base := listing.Version
	if prev, ok := v.u.listings[listing.ID]; ok {
		base = prev.baseVersion
	}
	v.u.listings[listing.ID] = staged[*domainlistings.Listing]{value: cloneListing(listing), baseVersion: base}
	return nil
}

type bookingView struct{ u *Unit }

func (v bookingView) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if found := v.all(func(b *domainbooking.Booking) bool { return b.ID == id }); len(found) > 0 {
		return found[0], nil
	}
	return nil, domainbooking.ErrNotFound
}

func (v bookingView) ByPaymentReference(ctx context.Context, reference string) (*domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domainbooking.ErrNotFound
	}
	if found := v.all(func(b *domainbooking.Booking) bool { return b.PaymentReference == reference }); len(found) > 0 {
		return found[0], nil
	}
	return nil, domainbooking.ErrNotFound
}

func (v bookingView) Save(ctx context.Context, booking *domainbooking.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if v.u.done {
		return ErrUnitClosed
	}
	base := booking.Version
	if prev, ok := v.u.bookings[booking.ID]; ok {
		base = prev.baseVersion
	}
	v.u.bookings[booking.ID] = staged[*domainbooking.Booking]{value: cloneBooking(booking), baseVersion: base}
	return nil
}

func (v bookingView) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.all(func(b *domainbooking.Booking) bool { return b.ListingID == listingID }), nil
}

func (v bookingView) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.all(func(b *domainbooking.Booking) bool { return b.RenterID == renterID }), nil
}

func (v bookingView) ListByHost(ctx context.Context, hostID domainlistings.HostID) ([]*domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.all(func(b *domainbooking.Booking) bool { return b.HostID == hostID }), nil
}

func (v bookingView) ListByStatus(ctx context.Context, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.all(func(b *domainbooking.Booking) bool { return b.Status == status }), nil
}

// all merges staged and committed bookings, staged first, ordered by
// creation time.
func (v bookingView) all(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	v.u.mu.Lock()
	stagedCopy := make(map[domainbooking.BookingID]*domainbooking.Booking, len(v.u.bookings))
	for id, st := range v.u.bookings {
		stagedCopy[id] = st.value
	}
	v.u.mu.Unlock()

	s := v.u.store
	s.mu.RLock()
	out := make([]*domainbooking.Booking, 0)
	for id, b := range s.bookings {
		if _, ok := stagedCopy[id]; ok {
			continue
		}
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	s.mu.RUnlock()
	for _, b := range stagedCopy {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type reviewView struct{ u *Unit }

func (v reviewView) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainreviews.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.u.mu.Lock()
	rv, ok := v.u.reviews[bookingID]
	v.u.mu.Unlock()
	if ok {
		return cloneReview(rv), nil
	}
	s := v.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rv, ok := s.reviews[bookingID]; ok {
		return cloneReview(rv), nil
	}
	return nil, domainreviews.ErrNotFound
}

// ListByListing returns newest first. A zero limit returns everything.
func (v reviewView) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.u.mu.Lock()
	merged := make(map[domainbooking.BookingID]*domainreviews.Review, len(v.u.reviews))
	for id, rv := range v.u.reviews {
		merged[id] = rv
	}
	v.u.mu.Unlock()

	s := v.u.store
	s.mu.RLock()
	for id, rv := range s.reviews {
		if _, ok := merged[id]; !ok {
			merged[id] = rv
		}
	}
	s.mu.RUnlock()

	out := make([]*domainreviews.Review, 0, len(merged))
	for _, rv := range merged {
		if rv.ListingID == listingID {
			out = append(out, cloneReview(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, offset), nil
}

func (v reviewView) Save(ctx context.Context, review *domainreviews.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if v.u.done {
		return ErrUnitClosed
	}
	if existing, ok := v.u.reviews[review.BookingID]; ok && existing.ID != review.ID {
		return domainreviews.ErrAlreadyReviewed
	}
	v.u.reviews[review.BookingID] = cloneReview(review)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var (
	_ domainlistings.ListingRepository = listingView{}
	_ domainbooking.Repository         = bookingView{}
	_ domainreviews.Repository         = reviewView{}
)

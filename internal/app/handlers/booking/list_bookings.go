package booking

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
)

const (
	listHostBookingsKey   = "host.bookings.list"
	listRenterBookingsKey = "me.bookings.list"
)

type ListHostBookingsQuery struct {
	HostID string `validate:"required"`
	Status string `validate:"omitempty,oneof=HOLD CONFIRMED CANCELLED COMPLETED REFUNDED DISPUTED"`
}

func (q ListHostBookingsQuery) Key() string { return listHostBookingsKey }

func (q ListHostBookingsQuery) ActorID() string { return q.HostID }

type ListRenterBookingsQuery struct {
	RenterID string `validate:"required"`
	Status   string `validate:"omitempty,oneof=HOLD CONFIRMED CANCELLED COMPLETED REFUNDED DISPUTED"`
}

func (q ListRenterBookingsQuery) Key() string { return listRenterBookingsKey }

func (q ListRenterBookingsQuery) ActorID() string { return q.RenterID }

// ListBookingsHandler answers both the host dashboard and the renter's own
// bookings. Status filters apply to the derived status.
type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *ListBookingsHandler) ForHost(ctx context.Context, q ListHostBookingsQuery) (dto.BookingCollection, error) {
	return h.list(ctx, q.Status, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Booking, error) {
		return unit.Bookings().ListByHost(ctx, domainlistings.HostID(q.HostID))
	})
}

func (h *ListBookingsHandler) ForRenter(ctx context.Context, q ListRenterBookingsQuery) (dto.BookingCollection, error) {
	return h.list(ctx, q.Status, func(ctx context.Context, unit uow.UnitOfWork) ([]*domainbooking.Booking, error) {
		return unit.Bookings().ListByRenter(ctx, q.RenterID)
	})
}

func (h *ListBookingsHandler) list(
	ctx context.Context,
	status string,
	load func(context.Context, uow.UnitOfWork) ([]*domainbooking.Booking, error),
) (dto.BookingCollection, error) {
	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit
	now := handlersupport.Now(h.Clock)

	bookings, err := load(ctx, unit)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].Range.Start.Before(bookings[j].Range.Start)
	})

	listingCache := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		if status != "" && string(b.StatusAt(now)) != status {
			continue
		}
		listing, err := loadListing(ctx, unit.Listings(), b.ListingID, listingCache)
		if err != nil {
			handlersupport.Logger(h.Logger).Warn("listing snapshot missing for booking", "booking_id", b.ID, "listing_id", b.ListingID, "error", err)
		}
		reviewed, err := HasReview(ctx, unit, b.ID)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		items = append(items, dto.MapBooking(b, listing, reviewed, now))
	}
	handlersupport.Logger(h.Logger).Debug("bookings listed", "count", len(items))
	return dto.BookingCollection{Items: items}, nil
}

func loadListing(
	ctx context.Context,
	repo domainlistings.ListingRepository,
	id domainlistings.ListingID,
	cache map[domainlistings.ListingID]*domainlistings.Listing,
) (*domainlistings.Listing, error) {
	if listing, ok := cache[id]; ok {
		return listing, nil
	}
	listing, err := repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = listing
	return listing, nil
}

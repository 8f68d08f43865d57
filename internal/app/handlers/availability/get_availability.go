package availability

import (
	"context"
	"time"

	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/queries"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainlistings "doorly/internal/domain/listings"
)

const getAvailabilityKey = "availability.get"

type GetAvailabilityQuery struct {
	ListingID string `validate:"required"`
}

func (q GetAvailabilityQuery) Key() string { return getAvailabilityKey }

// GetAvailabilityHandler derives blocked ranges from bookings at read time.
// Holds past their TTL are already free here.
type GetAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Policy     domainavailability.Policy
	Clock      func() time.Time
}

func (h *GetAvailabilityHandler) Handle(ctx context.Context, q GetAvailabilityQuery) (dto.Availability, error) {
	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit

	listingID := domainlistings.ListingID(q.ListingID)
	if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
		return dto.Availability{}, err
	}
	bookings, err := unit.Bookings().ListByListing(ctx, listingID)
	if err != nil {
		return dto.Availability{}, err
	}
	index := domainavailability.Build(listingID, bookings, h.Policy, handlersupport.Now(h.Clock))
	return dto.MapAvailability(index), nil
}

var _ queries.Handler[GetAvailabilityQuery, dto.Availability] = (*GetAvailabilityHandler)(nil)

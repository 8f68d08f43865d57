package listings

import (
	"context"
	"errors"
	"log/slog"

	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/policies"
	"doorly/internal/app/queries"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainrange "doorly/internal/domain/shared/daterange"
)

const getQuoteKey = "listings.quote"

// GetQuoteQuery prices a stay without reserving it. The amount shown here is
// the one a reservation for the same dates would charge.
type GetQuoteQuery struct {
	ListingID string `validate:"required"`
	StartDate string `validate:"required"`
	EndDate   string `validate:"required"`
}

func (q GetQuoteQuery) Key() string { return getQuoteKey }

type GetQuoteHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
	Logger     *slog.Logger
}

func (h *GetQuoteHandler) Handle(ctx context.Context, q GetQuoteQuery) (dto.Quote, error) {
	dr, err := domainrange.Parse(q.StartDate, q.EndDate)
	if err != nil {
		return dto.Quote{}, domainbooking.Reject(err)
	}

	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	defer scope.Close()

	listing, err := scope.Unit.Listings().ByID(scope.Ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.Quote{}, err
	}
	price, err := h.Pricing.Quote(scope.Ctx, listing, dr)
	if err != nil {
		if errors.Is(err, domainpricing.ErrRateMissing) {
			handlersupport.Logger(h.Logger).Error("listing rate table misconfigured", "listing_id", listing.ID, "error", err)
		}
		return dto.Quote{}, domainbooking.Reject(err)
	}
	return dto.MapQuote(string(listing.ID), dr, price), nil
}

var _ queries.Handler[GetQuoteQuery, dto.Quote] = (*GetQuoteHandler)(nil)

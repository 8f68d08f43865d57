package reviews

import (
	"context"
	"time"

	"doorly/internal/app/uow"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

func recalculateListingRating(ctx context.Context, unit uow.UnitOfWork, listingID domainlistings.ListingID, now time.Time) (*domainlistings.Listing, error) {
	all, err := unit.Reviews().ListByListing(ctx, listingID, 0, 0)
	if err != nil {
		return nil, err
	}
	average, count := domainreviews.Average(all)

	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	listing.UpdateRating(average, count, now)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

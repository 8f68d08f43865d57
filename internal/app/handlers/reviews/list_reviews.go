package reviews

import (
	"context"
	"log/slog"

	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/queries"
	"doorly/internal/app/uow"
	domainlistings "doorly/internal/domain/listings"
)

const listListingReviewsKey = "reviews.listing.list"

// ListListingReviewsQuery retrieves reviews for a listing.
type ListListingReviewsQuery struct {
	ListingID string `validate:"required"`
	Limit     int
	Offset    int
}

func (q ListListingReviewsQuery) Key() string { return listListingReviewsKey }

// ListListingReviewsHandler loads paginated reviews for a listing.
type ListListingReviewsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListListingReviewsHandler) Handle(ctx context.Context, q ListListingReviewsQuery) (dto.ReviewCollection, error) {
	limit := normalizeLimit(q.Limit)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit

	listingID := domainlistings.ListingID(q.ListingID)
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	page, err := unit.Reviews().ListByListing(ctx, listingID, limit, offset)
	if err != nil {
		return dto.ReviewCollection{}, err
	}

	items := make([]dto.Review, 0, len(page))
	for _, review := range page {
		items = append(items, dto.MapReview(review))
	}
	handlersupport.Logger(h.Logger).Debug("listing reviews listed", "listing_id", listingID, "count", len(items))
	return dto.ReviewCollection{Items: items, Total: listing.ReviewsCount}, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

var _ queries.Handler[ListListingReviewsQuery, dto.ReviewCollection] = (*ListListingReviewsHandler)(nil)

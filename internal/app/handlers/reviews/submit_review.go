package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	bookinghandlers "doorly/internal/app/handlers/booking"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/outbox"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainreviews "doorly/internal/domain/reviews"
)

const submitReviewKey = "reviews.submit"

// SubmitReviewCommand creates the single review of a booking.
type SubmitReviewCommand struct {
	BookingID string `validate:"required"`
	AuthorID  string `validate:"required"`
	Rating    int    `validate:"min=1,max=5"`
	Comment   string `validate:"required"`
}

func (c SubmitReviewCommand) Key() string { return submitReviewKey }

func (c SubmitReviewCommand) ActorID() string { return c.AuthorID }

// SubmitReviewHandler checks the review window, stores the review and
// recalculates the listing rating.
type SubmitReviewHandler struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (dto.Review, error) {
	scope, err := handlersupport.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Review{}, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit
	now := handlersupport.Now(h.Clock)

	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.Review{}, err
	}
	if booking.RenterID != cmd.AuthorID {
		return dto.Review{}, domainreviews.ErrNotRenter
	}
	reviewed, err := bookinghandlers.HasReview(ctx, unit, booking.ID)
	if err != nil {
		return dto.Review{}, err
	}
	if reviewed {
		return dto.Review{}, domainreviews.ErrAlreadyReviewed
	}
	window := domainreviews.EvaluateWindow(booking, false, now)
	if !window.Eligible {
		return dto.Review{}, fmt.Errorf("%w: %s", domainreviews.ErrWindowClosed, window.Reason)
	}

	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:        domainreviews.ReviewID(h.newID()),
		BookingID: booking.ID,
		ListingID: booking.ListingID,
		AuthorID:  cmd.AuthorID,
		Rating:    cmd.Rating,
		Comment:   cmd.Comment,
		CreatedAt: now,
	})
	if err != nil {
		return dto.Review{}, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		return dto.Review{}, err
	}
	listing, err := recalculateListingRating(ctx, unit, booking.ListingID, now)
	if err != nil {
		return dto.Review{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, review, listing); err != nil {
		return dto.Review{}, err
	}
	if err := scope.Commit(); err != nil {
		return dto.Review{}, err
	}

	handlersupport.Logger(h.Logger).Info("review submitted", "booking_id", booking.ID, "listing_id", booking.ListingID, "rating", cmd.Rating)
	return dto.MapReview(review), nil
}

func (h *SubmitReviewHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

var _ commands.Handler[SubmitReviewCommand, dto.Review] = (*SubmitReviewHandler)(nil)

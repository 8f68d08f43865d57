package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/queries"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

const (
	getBookingKey      = "booking.get"
	getReviewWindowKey = "booking.review_window"
)

// GetBookingQuery is answered only for the renter or the host of the booking.
type GetBookingQuery struct {
	BookingID string `validate:"required"`
	UserID    string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) ActorID() string { return q.UserID }

type GetReviewWindowQuery struct {
	BookingID string `validate:"required"`
	UserID    string `validate:"required"`
}

func (q GetReviewWindowQuery) Key() string { return getReviewWindowKey }

func (q GetReviewWindowQuery) ActorID() string { return q.UserID }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit

	b, err := loadForParticipant(ctx, unit, q.BookingID, q.UserID)
	if err != nil {
		return dto.Booking{}, err
	}
	listing, err := unit.Listings().ByID(ctx, b.ListingID)
	if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
		return dto.Booking{}, err
	}
	reviewed, err := HasReview(ctx, unit, b.ID)
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b, listing, reviewed, handlersupport.Now(h.Clock)), nil
}

type GetReviewWindowHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
}

func (h *GetReviewWindowHandler) Handle(ctx context.Context, q GetReviewWindowQuery) (dto.ReviewWindow, error) {
	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReviewWindow{}, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit

	b, err := loadForParticipant(ctx, unit, q.BookingID, q.UserID)
	if err != nil {
		return dto.ReviewWindow{}, err
	}
	reviewed, err := HasReview(ctx, unit, b.ID)
	if err != nil {
		return dto.ReviewWindow{}, err
	}
	return dto.MapReviewWindow(domainreviews.EvaluateWindow(b, reviewed, handlersupport.Now(h.Clock))), nil
}

func loadForParticipant(ctx context.Context, unit uow.UnitOfWork, bookingID, userID string) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return nil, err
	}
	if !b.IsParticipant(userID) {
		return nil, domainbooking.ErrNotParticipant
	}
	return b, nil
}

// HasReview reports whether the booking already carries its review.
func HasReview(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID) (bool, error) {
	_, err := unit.Reviews().ByBooking(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domainreviews.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]           = (*GetBookingHandler)(nil)
	_ queries.Handler[GetReviewWindowQuery, dto.ReviewWindow] = (*GetReviewWindowHandler)(nil)
)

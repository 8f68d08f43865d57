package reviews

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"doorly/internal/domain/booking"
	"doorly/internal/domain/listings"
	"doorly/internal/domain/shared/events"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MinCommentLength = 10
)

var (
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
	ErrCommentTooShort = errors.New("reviews: comment must be at least 10 characters")
	ErrNotFound        = errors.New("reviews: not found")
	ErrAlreadyReviewed = errors.New("reviews: booking already reviewed")
	ErrWindowClosed    = errors.New("reviews: review window is not open")
	ErrNotRenter       = errors.New("reviews: only the renter may review the booking")
)

type ReviewID string

type Review struct {
	ID        ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	ByBooking(ctx context.Context, bookingID booking.BookingID) (*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID, limit, offset int) ([]*Review, error)
	Save(ctx context.Context, review *Review) error
}

type SubmitParams struct {
	ID        ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < MinRating || params.Rating > MaxRating {
		return nil, ErrInvalidRating
	}
	comment := strings.TrimSpace(params.Comment)
	if utf8.RuneCountInString(comment) < MinCommentLength {
		return nil, ErrCommentTooShort
	}
	review := &Review{
		ID:        params.ID,
		BookingID: params.BookingID,
		ListingID: params.ListingID,
		AuthorID:  strings.TrimSpace(params.AuthorID),
		Rating:    params.Rating,
		Comment:   comment,
		CreatedAt: params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, BookingID: review.BookingID, ListingID: review.ListingID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}

// Average returns the mean rating of the given reviews.
func Average(items []*Review) (float64, int) {
	if len(items) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range items {
		sum += r.Rating
	}
	return float64(sum) / float64(len(items)), len(items)
}

package reviews

import (
	"time"

	"doorly/internal/domain/booking"
	"doorly/internal/domain/listings"
)

type ReviewSubmitted struct {
	ReviewID  ReviewID
	BookingID booking.BookingID
	ListingID listings.ListingID
	Rating    int
	At        time.Time
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }

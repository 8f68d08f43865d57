package dto

import (
	"time"

	domainreviews "doorly/internal/domain/reviews"
)

type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	ListingID string    `json:"listing_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items []Review `json:"items"`
	Total int      `json:"total"`
}

type ReviewWindow struct {
	Eligible bool      `json:"eligible"`
	OpensAt  time.Time `json:"opens_at"`
	ClosesAt time.Time `json:"closes_at"`
	Reason   string    `json:"reason"`
}

func MapReview(r *domainreviews.Review) Review {
	return Review{
		ID:        string(r.ID),
		BookingID: string(r.BookingID),
		ListingID: string(r.ListingID),
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func MapReviewWindow(w domainreviews.Window) ReviewWindow {
	return ReviewWindow{
		Eligible: w.Eligible,
		OpensAt:  w.OpensAt,
		ClosesAt: w.ClosesAt,
		Reason:   string(w.Reason),
	}
}

package dto

import (
	"time"

	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

type BookingListingSnapshot struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type Booking struct {
	ID               string                 `json:"id"`
	Listing          BookingListingSnapshot `json:"listing"`
	RenterID         string                 `json:"renter_id"`
	HostID           string                 `json:"host_id"`
	StartDate        string                 `json:"start_date"`
	EndDate          string                 `json:"end_date"`
	Days             int                    `json:"days"`
	Status           string                 `json:"status"`
	Total            MoneyDTO               `json:"total"`
	PaymentReference string                 `json:"payment_reference,omitempty"`
	HoldExpiresAt    *time.Time             `json:"hold_expires_at,omitempty"`
	PaidAt           *time.Time             `json:"paid_at,omitempty"`
	CancelReason     string                 `json:"cancel_reason,omitempty"`
	Refund           *MoneyDTO              `json:"refund,omitempty"`
	ChatUnlocked     bool                   `json:"chat_unlocked"`
	ReviewSubmitted  bool                   `json:"review_submitted"`
	ReviewWindow     ReviewWindow           `json:"review_window"`
	CreatedAt        time.Time              `json:"created_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

// MapBooking renders the booking as observed at now. Status is the derived
// status, so expired holds and finished stays show their effective state.
func MapBooking(b *domainbooking.Booking, listing *domainlistings.Listing, reviewed bool, now time.Time) Booking {
	out := Booking{
		ID:               string(b.ID),
		Listing:          BookingListingSnapshot{ID: string(b.ListingID)},
		RenterID:         b.RenterID,
		HostID:           string(b.HostID),
		StartDate:        b.Range.Start.Format(daterange.Layout),
		EndDate:          b.Range.End.Format(daterange.Layout),
		Days:             b.Range.Days(),
		Status:           string(b.StatusAt(now)),
		Total:            MapMoney(b.TotalAmount()),
		PaymentReference: b.PaymentReference,
		CancelReason:     string(b.CancelReason),
		ChatUnlocked:     b.ChatUnlocked(now),
		ReviewSubmitted:  reviewed,
		ReviewWindow:     MapReviewWindow(domainreviews.EvaluateWindow(b, reviewed, now)),
		CreatedAt:        b.CreatedAt,
	}
	if listing != nil {
		out.Listing.Title = listing.Title
	}
	if b.Status == domainbooking.StatusHold {
		expires := b.HoldExpiresAt
		out.HoldExpiresAt = &expires
	}
	if b.Settled() {
		paid := b.PaidAt
		out.PaidAt = &paid
	}
	if b.Refund.Currency != "" && !b.Refund.IsZero() {
		refund := MapMoney(b.Refund)
		out.Refund = &refund
	}
	return out
}

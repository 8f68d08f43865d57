package mongo

import (
	"time"

	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainreviews "doorly/internal/domain/reviews"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/money"
)

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func toMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type lineDocument struct {
	Name   string        `bson:"name"`
	Amount moneyDocument `bson:"amount"`
}

type priceDocument struct {
	Days      int            `bson:"days"`
	Tier      string         `bson:"tier"`
	Label     string         `bson:"label"`
	Subtotal  moneyDocument  `bson:"subtotal"`
	Fees      []lineDocument `bson:"fees"`
	Discounts []lineDocument `bson:"discounts"`
	Total     moneyDocument  `bson:"total"`
}

func toPriceDocument(p domainpricing.PriceBreakdown) priceDocument {
	doc := priceDocument{
		Days:     p.Days,
		Tier:     string(p.Tier),
		Label:    p.Label,
		Subtotal: toMoneyDocument(p.Subtotal),
		Total:    toMoneyDocument(p.Total),
	}
	for _, fee := range p.Fees {
		doc.Fees = append(doc.Fees, lineDocument{Name: fee.Name, Amount: toMoneyDocument(fee.Amount)})
	}
	for _, discount := range p.Discounts {
		doc.Discounts = append(doc.Discounts, lineDocument{Name: discount.Name, Amount: toMoneyDocument(discount.Amount)})
	}
	return doc
}

func (d priceDocument) toBreakdown() domainpricing.PriceBreakdown {
	out := domainpricing.PriceBreakdown{
		Days:     d.Days,
		Tier:     domainpricing.Tier(d.Tier),
		Label:    d.Label,
		Subtotal: d.Subtotal.toMoney(),
		Total:    d.Total.toMoney(),
	}
	for _, fee := range d.Fees {
		out.Fees = append(out.Fees, domainpricing.Fee{Name: fee.Name, Amount: fee.Amount.toMoney()})
	}
	for _, discount := range d.Discounts {
		out.Discounts = append(out.Discounts, domainpricing.Discount{Name: discount.Name, Amount: discount.Amount.toMoney()})
	}
	return out
}

type bookingDocument struct {
	ID                string        `bson:"_id"`
	ListingID         string        `bson:"listing_id"`
	RenterID          string        `bson:"renter_id"`
	HostID            string        `bson:"host_id"`
	Start             time.Time     `bson:"start"`
	End               time.Time     `bson:"end"`
	Price             priceDocument `bson:"price"`
	Status            string        `bson:"status"`
	PaymentReference  string        `bson:"payment_reference,omitempty"`
	HoldExpiresAt     time.Time     `bson:"hold_expires_at"`
	PaidAt            time.Time     `bson:"paid_at"`
	CancelReason      string        `bson:"cancel_reason,omitempty"`
	CancelledBy       string        `bson:"cancelled_by,omitempty"`
	Refund            moneyDocument `bson:"refund"`
	DisputeReason     string        `bson:"dispute_reason,omitempty"`
	DisputedBy        string        `bson:"disputed_by,omitempty"`
	DisputeResolvedAt time.Time     `bson:"dispute_resolved_at"`
	CreatedAt         time.Time     `bson:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at"`
	Version           int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:                string(b.ID),
		ListingID:         string(b.ListingID),
		RenterID:          b.RenterID,
		HostID:            string(b.HostID),
		Start:             b.Range.Start,
		End:               b.Range.End,
		Price:             toPriceDocument(b.Price),
		Status:            string(b.Status),
		PaymentReference:  b.PaymentReference,
		HoldExpiresAt:     b.HoldExpiresAt,
		PaidAt:            b.PaidAt,
		CancelReason:      string(b.CancelReason),
		CancelledBy:       string(b.CancelledBy),
		Refund:            toMoneyDocument(b.Refund),
		DisputeReason:     b.DisputeReason,
		DisputedBy:        b.DisputedBy,
		DisputeResolvedAt: b.DisputeResolvedAt,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
		Version:           b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:                domainbooking.BookingID(d.ID),
		ListingID:         domainlistings.ListingID(d.ListingID),
		RenterID:          d.RenterID,
		HostID:            domainlistings.HostID(d.HostID),
		Range:             daterange.DateRange{Start: daterange.Day(d.Start), End: daterange.Day(d.End)},
		Price:             d.Price.toBreakdown(),
		Status:            domainbooking.Status(d.Status),
		PaymentReference:  d.PaymentReference,
		HoldExpiresAt:     utc(d.HoldExpiresAt),
		PaidAt:            utc(d.PaidAt),
		CancelReason:      domainbooking.CancelReason(d.CancelReason),
		CancelledBy:       domainbooking.Actor(d.CancelledBy),
		Refund:            d.Refund.toMoney(),
		DisputeReason:     d.DisputeReason,
		DisputedBy:        d.DisputedBy,
		DisputeResolvedAt: utc(d.DisputeResolvedAt),
		CreatedAt:         utc(d.CreatedAt),
		UpdatedAt:         utc(d.UpdatedAt),
		Version:           d.Version,
	}
}

type listingDocument struct {
	ID           string    `bson:"_id"`
	HostID       string    `bson:"host_id"`
	Title        string    `bson:"title"`
	Daily        int64     `bson:"rate_daily"`
	Weekly       *int64    `bson:"rate_weekly,omitempty"`
	Monthly      *int64    `bson:"rate_monthly,omitempty"`
	Currency     string    `bson:"currency"`
	State        string    `bson:"state"`
	Rating       float64   `bson:"rating"`
	ReviewsCount int       `bson:"reviews_count"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
	Version      int64     `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:           string(l.ID),
		HostID:       string(l.Host),
		Title:        l.Title,
		Daily:        l.Rates.Daily,
		Weekly:       l.Rates.Weekly,
		Monthly:      l.Rates.Monthly,
		Currency:     l.Rates.Currency,
		State:        string(l.State),
		Rating:       l.Rating,
		ReviewsCount: l.ReviewsCount,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
		Version:      l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:    domainlistings.ListingID(d.ID),
		Host:  domainlistings.HostID(d.HostID),
		Title: d.Title,
		Rates: domainlistings.RateTable{
			Daily:    d.Daily,
			Weekly:   d.Weekly,
			Monthly:  d.Monthly,
			Currency: d.Currency,
		},
		State:        domainlistings.ListingState(d.State),
		Rating:       d.Rating,
		ReviewsCount: d.ReviewsCount,
		CreatedAt:    utc(d.CreatedAt),
		UpdatedAt:    utc(d.UpdatedAt),
		Version:      d.Version,
	}
}

type reviewDocument struct {
	ID        string    `bson:"_id"`
	BookingID string    `bson:"booking_id"`
	ListingID string    `bson:"listing_id"`
	AuthorID  string    `bson:"author_id"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
}

func newReviewDocument(r *domainreviews.Review) reviewDocument {
	return reviewDocument{
		ID:        string(r.ID),
		BookingID: string(r.BookingID),
		ListingID: string(r.ListingID),
		AuthorID:  r.AuthorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (d reviewDocument) toAggregate() *domainreviews.Review {
	return &domainreviews.Review{
		ID:        domainreviews.ReviewID(d.ID),
		BookingID: domainbooking.BookingID(d.BookingID),
		ListingID: domainlistings.ListingID(d.ListingID),
		AuthorID:  d.AuthorID,
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: utc(d.CreatedAt),
	}
}

// utc keeps zero times zero; the driver decodes them as the Unix epoch
// otherwise.
func utc(t time.Time) time.Time {
	if t.IsZero() || t.Unix() <= 0 {
		return time.Time{}
	}
	return t.UTC()
}

package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"doorly/internal/domain/shared/events"
)

var (
	ErrNotFound      = errors.New("listings: not found")
	ErrTitleRequired = errors.New("listings: title is required")
	ErrHostRequired  = errors.New("listings: host is required")
	ErrNegativeRate  = errors.New("listings: rates must be positive when set")
	ErrInvalidState  = errors.New("listings: invalid state transition")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingActive    ListingState = "ACTIVE"
	ListingSuspended ListingState = "SUSPENDED"
)

// RateTable holds the listing's price tiers in the smallest currency unit.
// Weekly and Monthly are optional; nil means the tier is not offered.
type RateTable struct {
	Daily    int64
	Weekly   *int64
	Monthly  *int64
	Currency string
}

// WeeklyRate returns the weekly price and whether the tier is offered.
func (r RateTable) WeeklyRate() (int64, bool) {
	if r.Weekly == nil || *r.Weekly <= 0 {
		return 0, false
	}
	return *r.Weekly, true
}

// MonthlyRate returns the monthly price and whether the tier is offered.
func (r RateTable) MonthlyRate() (int64, bool) {
	if r.Monthly == nil || *r.Monthly <= 0 {
		return 0, false
	}
	return *r.Monthly, true
}

// Rate is a helper for building optional tiers in fixtures and tests.
func Rate(amount int64) *int64 {
	return &amount
}

type Listing struct {
	ID           ListingID
	Host         HostID
	Title        string
	Rates        RateTable
	State        ListingState
	Rating       float64
	ReviewsCount int
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateListingParams struct {
	ID    ListingID
	Host  HostID
	Title string
	Rates RateTable
	Now   time.Time
}

// NewListing builds an active listing. A zero daily rate is accepted here and
// surfaces later as a pricing configuration error.
func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.Rates.Daily < 0 {
		return nil, ErrNegativeRate
	}
	if params.Rates.Weekly != nil && *params.Rates.Weekly < 0 {
		return nil, ErrNegativeRate
	}
	if params.Rates.Monthly != nil && *params.Rates.Monthly < 0 {
		return nil, ErrNegativeRate
	}
	now := params.Now.UTC()
	listing := &Listing{
		ID:        params.ID,
		Host:      params.Host,
		Title:     strings.TrimSpace(params.Title),
		Rates:     params.Rates,
		State:     ListingActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, HostID: listing.Host, At: now})
	return listing, nil
}

// Bookable reports whether renters may reserve the listing.
func (l *Listing) Bookable() bool {
	return l.State == ListingActive
}

func (l *Listing) Suspend(now time.Time) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	l.Record(ListingSuspendedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// UpdateRating stores the recalculated review average.
func (l *Listing) UpdateRating(average float64, count int, now time.Time) {
	l.Rating = average
	l.ReviewsCount = count
	l.UpdatedAt = now.UTC()
	l.Record(ListingRatingUpdatedEvent{ListingID: l.ID, Rating: average, ReviewsCount: count, At: l.UpdatedAt})
}

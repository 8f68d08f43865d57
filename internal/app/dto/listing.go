package dto

import (
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
)

type Rates struct {
	Daily    int64  `json:"daily"`
	Weekly   *int64 `json:"weekly,omitempty"`
	Monthly  *int64 `json:"monthly,omitempty"`
	Currency string `json:"currency"`
}

type Listing struct {
	ID           string  `json:"id"`
	HostID       string  `json:"host_id"`
	Title        string  `json:"title"`
	State        string  `json:"state"`
	Rates        Rates   `json:"rates"`
	Monotonic    bool    `json:"monotonic_pricing"`
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

func MapListing(l *domainlistings.Listing) Listing {
	out := Listing{
		ID:           string(l.ID),
		HostID:       string(l.Host),
		Title:        l.Title,
		State:        string(l.State),
		Rates:        Rates{Daily: l.Rates.Daily, Currency: l.Rates.Currency},
		Monotonic:    domainpricing.Monotonic(l.Rates),
		Rating:       l.Rating,
		ReviewsCount: l.ReviewsCount,
	}
	if weekly, ok := l.Rates.WeeklyRate(); ok {
		out.Rates.Weekly = &weekly
	}
	if monthly, ok := l.Rates.MonthlyRate(); ok {
		out.Rates.Monthly = &monthly
	}
	return out
}

package listings

import (
	"time"
)

type ListingCreatedEvent struct {
	ListingID ListingID
	HostID    HostID
	At        time.Time
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingSuspendedEvent struct {
	ListingID ListingID
	At        time.Time
}

func (e ListingSuspendedEvent) EventName() string     { return "listing.suspended" }
func (e ListingSuspendedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingSuspendedEvent) OccurredAt() time.Time { return e.At }

type ListingRatingUpdatedEvent struct {
	ListingID    ListingID
	Rating       float64
	ReviewsCount int
	At           time.Time
}

func (e ListingRatingUpdatedEvent) EventName() string     { return "listing.rating_updated" }
func (e ListingRatingUpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingRatingUpdatedEvent) OccurredAt() time.Time { return e.At }

package availability

import (
	"fmt"
	"sort"
	"time"

	"doorly/internal/domain/booking"
	"doorly/internal/domain/listings"
	"doorly/internal/domain/shared/daterange"
)

// Policy holds the overlap rules applied to a listing's calendar.
type Policy struct {
	// AllowSameDayTurnover lets a stay start on the day another one ends.
	AllowSameDayTurnover bool
}

// BlockingInterval is a booked span derived from a booking in a blocking status.
type BlockingInterval struct {
	ListingID listings.ListingID
	BookingID booking.BookingID
	Range     daterange.DateRange
	Status    booking.Status
}

// Index is a read-only snapshot of a listing's blocked dates, rebuilt from
// bookings on demand and never stored.
type Index struct {
	ListingID listings.ListingID
	Intervals []BlockingInterval
	Policy    Policy
}

// Build derives the index at now. Holds past their TTL no longer block even if
// no sweep has cancelled them yet.
func Build(listingID listings.ListingID, bookings []*booking.Booking, policy Policy, now time.Time) Index {
	idx := Index{ListingID: listingID, Policy: policy}
	for _, b := range bookings {
		if b == nil || b.ListingID != listingID || !b.BlocksAt(now) {
			continue
		}
		idx.Intervals = append(idx.Intervals, BlockingInterval{
			ListingID: listingID,
			BookingID: b.ID,
			Range:     b.Range,
			Status:    b.StatusAt(now),
		})
	}
	sort.Slice(idx.Intervals, func(i, j int) bool {
		a, c := idx.Intervals[i].Range, idx.Intervals[j].Range
		if a.Start.Equal(c.Start) {
			return a.End.Before(c.End)
		}
		return a.Start.Before(c.Start)
	})
	return idx
}

// Conflicts returns the intervals overlapping the candidate range.
func (idx Index) Conflicts(candidate daterange.DateRange) []BlockingInterval {
	var out []BlockingInterval
	for _, interval := range idx.Intervals {
		if interval.Range.Overlaps(candidate, idx.Policy.AllowSameDayTurnover) {
			out = append(out, interval)
		}
	}
	return out
}

// Check fails with booking.ErrOverlap when the candidate cannot be booked.
func (idx Index) Check(candidate daterange.DateRange) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	conflicts := idx.Conflicts(candidate)
	if len(conflicts) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s conflicts with %s", booking.ErrOverlap, candidate, conflicts[0].Range)
}

// CheckExcluding is Check ignoring one booking, used when re-validating a
// booking against everyone else.
func (idx Index) CheckExcluding(candidate daterange.DateRange, self booking.BookingID) error {
	filtered := Index{ListingID: idx.ListingID, Policy: idx.Policy}
	for _, interval := range idx.Intervals {
		if interval.BookingID != self {
			filtered.Intervals = append(filtered.Intervals, interval)
		}
	}
	return filtered.Check(candidate)
}

// Ranges returns the blocked spans in calendar order.
func (idx Index) Ranges() []daterange.DateRange {
	out := make([]daterange.DateRange, 0, len(idx.Intervals))
	for _, interval := range idx.Intervals {
		out = append(out, interval.Range)
	}
	return out
}

package dto

import (
	domainavailability "doorly/internal/domain/availability"
	"doorly/internal/domain/shared/daterange"
)

type BlockedRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

type Availability struct {
	ListingID            string         `json:"listing_id"`
	AllowSameDayTurnover bool           `json:"allow_same_day_turnover"`
	Blocked              []BlockedRange `json:"blocked"`
}

// MapAvailability hides booking ids; callers only learn which days are taken.
func MapAvailability(idx domainavailability.Index) Availability {
	out := Availability{
		ListingID:            string(idx.ListingID),
		AllowSameDayTurnover: idx.Policy.AllowSameDayTurnover,
		Blocked:              make([]BlockedRange, 0, len(idx.Intervals)),
	}
	for _, interval := range idx.Intervals {
		out.Blocked = append(out.Blocked, BlockedRange{
			StartDate: interval.Range.Start.Format(daterange.Layout),
			EndDate:   interval.Range.End.Format(daterange.Layout),
			Status:    string(interval.Status),
		})
	}
	return out
}

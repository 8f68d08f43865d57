package dto

import (
	domainpricing "doorly/internal/domain/pricing"
	"doorly/internal/domain/shared/daterange"
)

type PriceLine struct {
	Name   string   `json:"name"`
	Amount MoneyDTO `json:"amount"`
}

type Quote struct {
	ListingID string      `json:"listing_id"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Days      int         `json:"days"`
	Tier      string      `json:"tier"`
	Label     string      `json:"label"`
	Subtotal  MoneyDTO    `json:"subtotal"`
	Fees      []PriceLine `json:"fees"`
	Discounts []PriceLine `json:"discounts"`
	Total     MoneyDTO    `json:"total"`
}

func MapQuote(listingID string, dr daterange.DateRange, p domainpricing.PriceBreakdown) Quote {
	out := Quote{
		ListingID: listingID,
		StartDate: dr.Start.Format(daterange.Layout),
		EndDate:   dr.End.Format(daterange.Layout),
		Days:      p.Days,
		Tier:      string(p.Tier),
		Label:     p.Label,
		Subtotal:  MapMoney(p.Subtotal),
		Fees:      make([]PriceLine, 0, len(p.Fees)),
		Discounts: make([]PriceLine, 0, len(p.Discounts)),
		Total:     MapMoney(p.Total),
	}
	for _, fee := range p.Fees {
		out.Fees = append(out.Fees, PriceLine{Name: fee.Name, Amount: MapMoney(fee.Amount)})
	}
	for _, discount := range p.Discounts {
		out.Discounts = append(out.Discounts, PriceLine{Name: discount.Name, Amount: MapMoney(discount.Amount)})
	}
	return out
}

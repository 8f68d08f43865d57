package policies

import (
	"context"

	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainrange "doorly/internal/domain/shared/daterange"
)

type PricingPort interface {
	Quote(ctx context.Context, listing *domainlistings.Listing, dr domainrange.DateRange) (domainpricing.PriceBreakdown, error)
}

// CalculatorPricing prices quotes in process with the domain calculator.
type CalculatorPricing struct {
	Calculator domainpricing.Calculator
}

func (p CalculatorPricing) Quote(ctx context.Context, listing *domainlistings.Listing, dr domainrange.DateRange) (domainpricing.PriceBreakdown, error) {
	if err := ctx.Err(); err != nil {
		return domainpricing.PriceBreakdown{}, err
	}
	return p.Calculator.Quote(dr, listing.Rates)
}

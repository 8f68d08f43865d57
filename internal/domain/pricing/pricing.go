package pricing

import (
	"errors"
	"fmt"
	"strings"

	"doorly/internal/domain/listings"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/money"
)

const (
	DaysPerWeek  = 7
	DaysPerMonth = 30
)

var (
	ErrRateMissing   = errors.New("pricing: listing has no daily rate")
	ErrInvalidLength = errors.New("pricing: stay length must be positive")
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
)

type Tier string

const (
	TierDaily   Tier = "daily"
	TierWeekly  Tier = "weekly"
	TierMonthly Tier = "monthly"
)

type Fee struct {
	Name   string
	Amount money.Money
}

type Discount struct {
	Name   string
	Amount money.Money
}

// PriceBreakdown is a quote for a stay. Subtotal is the ladder price; Total is
// what the renter is charged once fees and discounts are applied.
type PriceBreakdown struct {
	Days      int
	Tier      Tier
	Label     string
	Subtotal  money.Money
	Fees      []Fee
	Discounts []Discount
	Total     money.Money
}

func (p PriceBreakdown) FeeTotal() int64 {
	var sum int64
	for _, fee := range p.Fees {
		sum += fee.Amount.Amount
	}
	return sum
}

func (p PriceBreakdown) DiscountTotal() int64 {
	var sum int64
	for _, discount := range p.Discounts {
		sum += discount.Amount.Amount
	}
	return sum
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.Fees = append([]Fee(nil), p.Fees...)
	clone.Discounts = append([]Discount(nil), p.Discounts...)
	return clone
}

// Calculator prices stays against a listing's rate table. FeeBasisPoints is the
// platform fee (1000 = 10%); FeeWaived discounts that fee back to zero.
type Calculator struct {
	FeeBasisPoints int64
	FeeWaived      bool
}

// Ladder returns the subtotal for a stay of the given length. Tiers form a
// threshold ladder: monthly first, then weekly, then daily. A missing tier falls
// through to the next one down.
func Ladder(days int, rates listings.RateTable) (int64, Tier, string, error) {
	if rates.Daily <= 0 {
		return 0, "", "", ErrRateMissing
	}
	if days <= 0 {
		return 0, "", "", ErrInvalidLength
	}
	if monthly, ok := rates.MonthlyRate(); ok && days >= DaysPerMonth {
		months := days / DaysPerMonth
		rest, _, restLabel := shortStay(days%DaysPerMonth, rates)
		label := plural(months, "month") + fmt.Sprintf(" x %d", monthly)
		if restLabel != "" {
			label += " + " + restLabel
		}
		return int64(months)*monthly + rest, TierMonthly, label, nil
	}
	total, tier, label := shortStay(days, rates)
	return total, tier, label, nil
}

func shortStay(days int, rates listings.RateTable) (int64, Tier, string) {
	if days <= 0 {
		return 0, TierDaily, ""
	}
	if weekly, ok := rates.WeeklyRate(); ok && days >= DaysPerWeek {
		weeks, rest := days/DaysPerWeek, days%DaysPerWeek
		label := plural(weeks, "week") + fmt.Sprintf(" x %d", weekly)
		if rest > 0 {
			label += " + " + plural(rest, "day") + fmt.Sprintf(" x %d", rates.Daily)
		}
		return int64(weeks)*weekly + int64(rest)*rates.Daily, TierWeekly, label
	}
	return int64(days) * rates.Daily, TierDaily, plural(days, "day") + fmt.Sprintf(" x %d", rates.Daily)
}

// Quote prices a stay including the platform fee.
func (c Calculator) Quote(r daterange.DateRange, rates listings.RateTable) (PriceBreakdown, error) {
	if err := r.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	currency := strings.TrimSpace(rates.Currency)
	if currency == "" {
		return PriceBreakdown{}, ErrCurrencyUnset
	}
	days := r.Days()
	subtotal, tier, label, err := Ladder(days, rates)
	if err != nil {
		return PriceBreakdown{}, err
	}
	out := PriceBreakdown{
		Days:     days,
		Tier:     tier,
		Label:    label,
		Subtotal: money.Money{Amount: subtotal, Currency: currency},
	}
	if c.FeeBasisPoints > 0 {
		fee := out.Subtotal.BasisPoints(c.FeeBasisPoints)
		out.Fees = append(out.Fees, Fee{Name: "service_fee", Amount: fee})
		if c.FeeWaived {
			out.Discounts = append(out.Discounts, Discount{Name: "service_fee_waiver", Amount: fee})
		}
	}
	out.Total = money.Money{Amount: subtotal + out.FeeTotal() - out.DiscountTotal(), Currency: currency}
	if out.Total.Amount < 0 {
		out.Total.Amount = 0
	}
	return out, nil
}

// Monotonic reports whether longer stays can never be cheaper than shorter
// ones under the ladder. It holds when each tier costs at least the longest
// stay priced by the tiers below it.
func Monotonic(rates listings.RateTable) bool {
	if rates.Daily <= 0 {
		return false
	}
	if weekly, ok := rates.WeeklyRate(); ok && weekly < int64(DaysPerWeek-1)*rates.Daily {
		return false
	}
	if monthly, ok := rates.MonthlyRate(); ok {
		longest, _, _ := shortStay(DaysPerMonth-1, rates)
		if monthly < longest {
			return false
		}
	}
	return true
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

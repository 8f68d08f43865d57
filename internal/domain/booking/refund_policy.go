package booking

import (
	"time"

	"doorly/internal/domain/shared/money"
)

type Actor string

const (
	ActorRenter Actor = "renter"
	ActorHost   Actor = "host"
	ActorSystem Actor = "system"
)

// RefundPolicy decides how much of a confirmed booking is returned when it is
// cancelled before the stay starts.
type RefundPolicy struct {
	FullRefundBefore    time.Duration
	PartialRefundBefore time.Duration
	PartialBasisPoints  int64
}

func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		FullRefundBefore:    48 * time.Hour,
		PartialRefundBefore: 24 * time.Hour,
		PartialBasisPoints:  5_000,
	}
}

// Refund returns the amount owed to the renter. Host cancellations are always
// refunded in full; renter cancellations depend on the lead time before start.
func (p RefundPolicy) Refund(total money.Money, cancelAt, start time.Time, actor Actor) money.Money {
	if actor == ActorHost || actor == ActorSystem {
		return total
	}
	lead := start.Sub(cancelAt)
	switch {
	case lead > p.FullRefundBefore:
		return total
	case lead >= p.PartialRefundBefore:
		return total.BasisPoints(clampBasisPoints(p.PartialBasisPoints))
	default:
		return money.Zero(total.Currency)
	}
}

func clampBasisPoints(bps int64) int64 {
	if bps < 0 {
		return 0
	}
	if bps > money.BasisPointsBase {
		return money.BasisPointsBase
	}
	return bps
}

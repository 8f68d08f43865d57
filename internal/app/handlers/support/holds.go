package support

import (
	"context"
	"time"

	"doorly/internal/app/outbox"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
)

// ExpireStaleHolds persists the cancellation of holds in list whose TTL has
// elapsed, except the booking named by keep. Stores that enforce overlaps on
// the stored status need this before a new booking claims the same dates.
func ExpireStaleHolds(ctx context.Context, unit uow.UnitOfWork, box outbox.Outbox, encoder outbox.EventEncoder, list []*domainbooking.Booking, keep domainbooking.BookingID, now time.Time) (int, error) {
	expired := 0
	for _, b := range list {
		if b.ID == keep || !b.HoldExpired(now) {
			continue
		}
		if err := b.Expire(now); err != nil {
			return expired, err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return expired, err
		}
		if err := outbox.RecordAggregates(ctx, box, encoder, b); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

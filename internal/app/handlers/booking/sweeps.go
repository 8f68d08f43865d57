package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/outbox"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
)

const (
	expireHoldsKey   = "booking.sweep.expire_holds"
	completeStaysKey = "booking.sweep.complete_stays"
)

// ExpireHoldsCommand persists the cancellation of holds whose TTL elapsed.
// Reads already treat them as cancelled; the sweep makes that durable.
type ExpireHoldsCommand struct{}

func (ExpireHoldsCommand) Key() string { return expireHoldsKey }

// CompleteStaysCommand persists COMPLETED for confirmed stays that ended.
type CompleteStaysCommand struct{}

func (CompleteStaysCommand) Key() string { return completeStaysKey }

type SweepResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// SweepHandler applies time-driven transitions one booking per unit of work,
// so a conflict on one booking never rolls back the rest of the batch.
type SweepHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *SweepHandler) ExpireHolds(ctx context.Context, _ ExpireHoldsCommand) (*SweepResult, error) {
	now := handlersupport.Now(h.Clock)
	return h.sweep(ctx, "expire_holds", domainbooking.StatusHold, func(b *domainbooking.Booking) bool {
		return b.HoldExpired(now)
	}, func(b *domainbooking.Booking) error {
		return b.Expire(now)
	})
}

func (h *SweepHandler) CompleteStays(ctx context.Context, _ CompleteStaysCommand) (*SweepResult, error) {
	now := handlersupport.Now(h.Clock)
	return h.sweep(ctx, "complete_stays", domainbooking.StatusConfirmed, func(b *domainbooking.Booking) bool {
		return b.StatusAt(now) == domainbooking.StatusCompleted
	}, func(b *domainbooking.Booking) error {
		return b.Complete(now)
	})
}

func (h *SweepHandler) sweep(
	ctx context.Context,
	name string,
	status domainbooking.Status,
	due func(*domainbooking.Booking) bool,
	apply func(*domainbooking.Booking) error,
) (*SweepResult, error) {
	logger := handlersupport.Logger(h.Logger)
	candidates, err := h.candidates(ctx, status)
	if err != nil {
		return nil, err
	}
	result := &SweepResult{Scanned: len(candidates)}
	for _, candidate := range candidates {
		if !due(candidate) {
			continue
		}
		if err := h.applyOne(ctx, candidate.ID, due, apply); err != nil {
			if errors.Is(err, errNoLongerDue) {
				continue
			}
			result.Failed++
			logger.Warn("sweep step failed", "sweep", name, "booking_id", candidate.ID, "error", err)
			continue
		}
		result.Updated++
	}
	if result.Updated > 0 && h.Outbox != nil {
		if err := h.Outbox.Flush(ctx); err != nil {
			logger.Warn("outbox flush after sweep failed", "sweep", name, "error", err)
		}
	}
	if result.Updated > 0 || result.Failed > 0 {
		logger.Info("sweep finished", "sweep", name, "scanned", result.Scanned, "updated", result.Updated, "failed", result.Failed)
	}
	return result, nil
}

var errNoLongerDue = errors.New("booking: sweep candidate changed before update")

func (h *SweepHandler) candidates(ctx context.Context, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	scope, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	return scope.Unit.Bookings().ListByStatus(scope.Ctx, status)
}

func (h *SweepHandler) applyOne(
	ctx context.Context,
	id domainbooking.BookingID,
	due func(*domainbooking.Booking) bool,
	apply func(*domainbooking.Booking) error,
) error {
	scope, err := handlersupport.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit

	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return err
	}
	if !due(b) {
		return errNoLongerDue
	}
	if err := apply(b); err != nil {
		return err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, b); err != nil {
		return err
	}
	return scope.Commit()
}

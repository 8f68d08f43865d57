package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/outbox"
	"doorly/internal/app/policies"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID       string `validate:"required"`
	UserID          string `validate:"required"`
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &CancellationResult{} }

func (c CancelBookingCommand) ActorID() string { return c.UserID }

type CancellationResult struct {
	BookingID   string       `json:"booking_id"`
	Status      string       `json:"status"`
	CancelledBy string       `json:"cancelled_by"`
	Refund      dto.MoneyDTO `json:"refund"`
}

type CancelBookingHandler struct {
	UoWFactory   uow.UoWFactory
	Payments     policies.PaymentsPort
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	RefundPolicy domainbooking.RefundPolicy
	Clock        func() time.Time
	Logger       *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancellationResult, error) {
	scope, err := handlersupport.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit
	now := handlersupport.Now(h.Clock)

	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	actor, err := actorOf(b, cmd.UserID)
	if err != nil {
		return nil, err
	}
	refund, err := b.Cancel(actor, h.RefundPolicy, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if b.Settled() && !refund.IsZero() && h.Payments != nil {
		if err := h.Payments.Refund(ctx, b.PaymentReference, refund, policies.RefundKey(string(b.ID), policies.RefundCancellation)); err != nil {
			return nil, fmt.Errorf("%w: %v", policies.ErrPaymentGateway, err)
		}
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}

	handlersupport.Logger(h.Logger).Info("booking cancelled", "booking_id", b.ID, "by", actor, "refund", refund.Amount)
	return &CancellationResult{
		BookingID:   string(b.ID),
		Status:      string(b.Status),
		CancelledBy: string(actor),
		Refund:      dto.MapMoney(refund),
	}, nil
}

func actorOf(b *domainbooking.Booking, userID string) (domainbooking.Actor, error) {
	switch userID {
	case b.RenterID:
		return domainbooking.ActorRenter, nil
	case string(b.HostID):
		return domainbooking.ActorHost, nil
	}
	return "", domainbooking.ErrNotParticipant
}

var _ commands.Handler[CancelBookingCommand, *CancellationResult] = (*CancelBookingHandler)(nil)

package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/outbox"
	"doorly/internal/app/policies"
	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
)

const (
	openDisputeKey    = "booking.dispute.open"
	resolveDisputeKey = "booking.dispute.resolve"
)

type OpenDisputeCommand struct {
	BookingID  string `validate:"required"`
	ReporterID string `validate:"required"`
	Reason     string `validate:"required,max=2000"`
}

func (c OpenDisputeCommand) Key() string { return openDisputeKey }

func (c OpenDisputeCommand) ActorID() string { return c.ReporterID }

// ResolveDisputeCommand is issued by platform staff; the transport checks the
// admin credential before dispatching it.
type ResolveDisputeCommand struct {
	BookingID  string `validate:"required"`
	AdminID    string `validate:"required"`
	Resolution string `validate:"required,oneof=refund release"`
}

func (c ResolveDisputeCommand) Key() string { return resolveDisputeKey }

func (c ResolveDisputeCommand) ActorID() string { return c.AdminID }

type DisputeResult struct {
	BookingID string        `json:"booking_id"`
	Status    string        `json:"status"`
	Refund    *dto.MoneyDTO `json:"refund,omitempty"`
}

type DisputeHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *DisputeHandler) Open(ctx context.Context, cmd OpenDisputeCommand) (*DisputeResult, error) {
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
	if err := b.OpenDispute(cmd.ReporterID, cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}
	handlersupport.Logger(h.Logger).Warn("dispute opened", "booking_id", b.ID, "reporter_id", cmd.ReporterID)
	return &DisputeResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

func (h *DisputeHandler) Resolve(ctx context.Context, cmd ResolveDisputeCommand) (*DisputeResult, error) {
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
	refund, err := b.ResolveDispute(domainbooking.DisputeResolution(cmd.Resolution), now)
	if err != nil {
		return nil, err
	}
	if err := h.persist(ctx, unit, b); err != nil {
		return nil, err
	}
	if !refund.IsZero() && h.Payments != nil {
		if err := h.Payments.Refund(ctx, b.PaymentReference, refund, policies.RefundKey(string(b.ID), policies.RefundDispute)); err != nil {
			return nil, fmt.Errorf("%w: %v", policies.ErrPaymentGateway, err)
		}
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}
	handlersupport.Logger(h.Logger).Info("dispute resolved", "booking_id", b.ID, "resolution", cmd.Resolution, "admin_id", cmd.AdminID)
	out := &DisputeResult{BookingID: string(b.ID), Status: string(b.Status)}
	if !refund.IsZero() {
		mapped := dto.MapMoney(refund)
		out.Refund = &mapped
	}
	return out, nil
}

func (h *DisputeHandler) persist(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, b)
}

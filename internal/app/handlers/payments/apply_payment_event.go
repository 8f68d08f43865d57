package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"doorly/internal/app/commands"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/middleware"
	"doorly/internal/app/outbox"
	"doorly/internal/app/policies"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
)

const applyPaymentEventKey = "payments.apply_event"

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

var ErrBookingUnidentified = errors.New("payments: event names neither booking nor payment reference")

// ApplyPaymentEventCommand carries one gateway notification. Delivery is at
// least once and possibly out of order.
type ApplyPaymentEventCommand struct {
	EventID          string
	BookingID        string
	PaymentReference string
	Outcome          Outcome `validate:"required,oneof=approved rejected"`
}

func (c ApplyPaymentEventCommand) Key() string { return applyPaymentEventKey }

// InboxEventID lets the inbox drop redelivered notifications.
func (c ApplyPaymentEventCommand) InboxEventID() string { return strings.TrimSpace(c.EventID) }

func (c ApplyPaymentEventCommand) DuplicateResult() any {
	return &PaymentEventResult{BookingID: c.BookingID, Duplicate: true}
}

type PaymentEventResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
	Anomaly   bool   `json:"anomaly"`
	Conflict  bool   `json:"conflict"`
	Detail    string `json:"detail,omitempty"`
}

type ApplyPaymentEventHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Policy     domainavailability.Policy
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *ApplyPaymentEventHandler) Handle(ctx context.Context, cmd ApplyPaymentEventCommand) (*PaymentEventResult, error) {
	if strings.TrimSpace(cmd.BookingID) == "" && strings.TrimSpace(cmd.PaymentReference) == "" {
		return nil, ErrBookingUnidentified
	}
	scope, err := handlersupport.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit
	now := handlersupport.Now(h.Clock)

	b, err := h.load(ctx, unit, cmd)
	if err != nil {
		return nil, err
	}
	result := &PaymentEventResult{BookingID: string(b.ID)}

	var applied bool
	switch cmd.Outcome {
	case OutcomeApproved:
		applied, err = b.Approve(cmd.PaymentReference, now)
		if errors.Is(err, domainbooking.ErrLateApproval) {
			err = h.settleLateApproval(ctx, unit, b, result, now)
			applied = err == nil
		}
	case OutcomeRejected:
		applied, err = b.RejectPayment(cmd.PaymentReference, now)
	default:
		return nil, errors.New("payments: unknown outcome " + string(cmd.Outcome))
	}

	switch {
	case errors.Is(err, domainbooking.ErrStalePaymentEvent):
		h.logger().Warn("payment event contradicts booking state", "booking_id", b.ID, "outcome", cmd.Outcome, "status", b.Status, "error", err)
		b.RecordPaymentAnomaly(string(cmd.Outcome), err.Error(), now)
		result.Anomaly = true
		result.Detail = err.Error()
	case errors.Is(err, domainbooking.ErrInvalidTransition):
		h.logger().Warn("payment event rejected", "booking_id", b.ID, "outcome", cmd.Outcome, "error", err)
		return nil, err
	case err != nil:
		return nil, err
	case !applied:
		h.logger().Info("payment event is a no-op", "booking_id", b.ID, "outcome", cmd.Outcome, "status", b.Status)
	}

	if applied || result.Anomaly {
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return nil, err
		}
		if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, b); err != nil {
			return nil, err
		}
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}
	result.Applied = applied
	result.Status = string(b.StatusAt(now))
	return result, nil
}

// settleLateApproval handles an approval that lost the race against hold
// expiry. The booking is revived when its dates are still free; otherwise the
// payment is refunded and the conflict reported.
func (h *ApplyPaymentEventHandler) settleLateApproval(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, result *PaymentEventResult, now time.Time) error {
	if err := unit.LockListing(ctx, b.ListingID); err != nil {
		return err
	}
	others, err := unit.Bookings().ListByListing(ctx, b.ListingID)
	if err != nil {
		return err
	}
	if _, err := handlersupport.ExpireStaleHolds(ctx, unit, h.Outbox, h.Encoder, others, b.ID, now); err != nil {
		return err
	}
	index := domainavailability.Build(b.ListingID, others, h.Policy, now)
	if checkErr := index.CheckExcluding(b.Range, b.ID); checkErr == nil {
		h.logger().Info("late approval reinstated booking", "booking_id", b.ID)
		return b.ReinstateLateApproval(now)
	} else if !errors.Is(checkErr, domainbooking.ErrOverlap) {
		return checkErr
	}

	if err := b.RefundUnfulfillable(now); err != nil {
		return err
	}
	if h.Payments != nil && b.PaymentReference != "" {
		if err := h.Payments.Refund(ctx, b.PaymentReference, b.Refund, policies.RefundKey(string(b.ID), policies.RefundLateApproval)); err != nil {
			return err
		}
	}
	result.Conflict = true
	result.Detail = "dates were reassigned while the payment was pending; refunded"
	h.logger().Warn("late approval could not be honoured", "booking_id", b.ID, "listing_id", b.ListingID, "refund", b.Refund.Amount)
	return nil
}

func (h *ApplyPaymentEventHandler) load(ctx context.Context, unit uow.UnitOfWork, cmd ApplyPaymentEventCommand) (*domainbooking.Booking, error) {
	if id := strings.TrimSpace(cmd.BookingID); id != "" {
		return unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
	}
	return unit.Bookings().ByPaymentReference(ctx, strings.TrimSpace(cmd.PaymentReference))
}

func (h *ApplyPaymentEventHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[ApplyPaymentEventCommand, *PaymentEventResult] = (*ApplyPaymentEventHandler)(nil)
var _ middleware.InboxMessage = ApplyPaymentEventCommand{}

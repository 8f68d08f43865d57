package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"doorly/internal/app/commands"
	handlerpayments "doorly/internal/app/handlers/payments"
	"doorly/internal/app/middleware"
	domainbooking "doorly/internal/domain/booking"
	"doorly/internal/infra/payments"
)

// PaymentEvents feeds gateway notifications from the payments topic into the
// booking state machine. Only transient failures are returned, so poison
// messages do not stall the partition.
type PaymentEvents struct {
	Bus    commands.Bus
	Logger *slog.Logger
}

func (p *PaymentEvents) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev payments.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		p.logger().Warn("undecodable payment event", "offset", msg.Offset, "error", err)
		return nil
	}
	cmd, err := ev.Command()
	if err != nil {
		p.logger().Info("payment event skipped", "event_id", ev.ID, "status", ev.Status, "error", err)
		return nil
	}
	res, err := commands.Dispatch[handlerpayments.ApplyPaymentEventCommand, *handlerpayments.PaymentEventResult](ctx, p.Bus, cmd)
	switch {
	case err == nil && res == nil:
		return nil
	case err == nil:
		p.logger().Info("payment event applied",
			"event_id", cmd.EventID, "booking_id", res.BookingID, "status", res.Status,
			"applied", res.Applied, "duplicate", res.Duplicate, "anomaly", res.Anomaly, "conflict", res.Conflict)
		return nil
	case errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domainbooking.ErrInvalidTransition),
		errors.Is(err, handlerpayments.ErrBookingUnidentified),
		errors.Is(err, middleware.ErrValidation):
		p.logger().Warn("payment event rejected", "event_id", cmd.EventID, "error", err)
		return nil
	}
	return err
}

func (p *PaymentEvents) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*PaymentEvents)(nil)

package payments

import (
	"errors"
	"strings"

	handlerpayments "doorly/internal/app/handlers/payments"
)

var (
	ErrMalformedEvent = errors.New("payments: malformed gateway event")
	ErrIgnoredStatus  = errors.New("payments: status does not settle the payment")
)

// Event is the gateway notification as delivered to the webhook and to the
// payments topic. ExternalReference carries the booking id set at checkout.
type Event struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	PaymentReference  string `json:"payment_reference"`
}

// Command maps the event to a state machine command. Intermediate statuses
// such as pending report ErrIgnoredStatus.
func (e Event) Command() (handlerpayments.ApplyPaymentEventCommand, error) {
	cmd := handlerpayments.ApplyPaymentEventCommand{
		EventID:          strings.TrimSpace(e.ID),
		BookingID:        strings.TrimSpace(e.ExternalReference),
		PaymentReference: strings.TrimSpace(e.PaymentReference),
	}
	if cmd.EventID == "" || (cmd.BookingID == "" && cmd.PaymentReference == "") {
		return cmd, ErrMalformedEvent
	}
	switch strings.ToLower(strings.TrimSpace(e.Status)) {
	case "approved", "accredited":
		cmd.Outcome = handlerpayments.OutcomeApproved
	case "rejected", "cancelled", "declined":
		cmd.Outcome = handlerpayments.OutcomeRejected
	default:
		return cmd, ErrIgnoredStatus
	}
	return cmd, nil
}

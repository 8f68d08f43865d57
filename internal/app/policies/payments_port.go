package policies

import (
	"context"
	"errors"

	"doorly/internal/domain/shared/money"
)

var ErrPaymentGateway = errors.New("payments: gateway request failed")

// PaymentIntent is the gateway's checkout handle for one booking.
type PaymentIntent struct {
	Reference   string
	CheckoutURL string
}

// PaymentsPort talks to the external payment gateway. Amounts always come from
// the server-side quote, never from the client. Calls may be repeated when a
// command is retried; the gateway performs each idempotency key at most once.
type PaymentsPort interface {
	CreateIntent(ctx context.Context, bookingID string, amount money.Money, idempotencyKey string) (PaymentIntent, error)
	Refund(ctx context.Context, reference string, amount money.Money, idempotencyKey string) error
}

// Reasons a booking can be refunded. A booking is refunded at most once per
// reason.
const (
	RefundCancellation = "cancel"
	RefundDispute      = "dispute"
	RefundLateApproval = "late-approval"
)

func IntentKey(bookingID string) string { return "intent:" + bookingID }

func RefundKey(bookingID, reason string) string { return "refund:" + bookingID + ":" + reason }

package payments

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"doorly/internal/app/policies"
	"doorly/internal/domain/shared/money"
)

// Refund is a refund the demo gateway issued.
type Refund struct {
	Reference string
	Amount    money.Money
	Key       string
}

// DemoGateway stands in for the real gateway in local runs and tests. It
// issues references and records refunds without moving money.
type DemoGateway struct {
	CheckoutBaseURL string
	IDGenerator     func() string

	mu       sync.Mutex
	intents  map[string]string
	byKey    map[string]policies.PaymentIntent
	refunds  []Refund
	refunded map[string]bool
}

func NewDemoGateway(checkoutBaseURL string) *DemoGateway {
	return &DemoGateway{CheckoutBaseURL: strings.TrimRight(checkoutBaseURL, "/")}
}

// CreateIntent returns the intent already created under idempotencyKey, if any.
func (g *DemoGateway) CreateIntent(ctx context.Context, bookingID string, amount money.Money, idempotencyKey string) (policies.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return policies.PaymentIntent{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.byKey[idempotencyKey]; ok && idempotencyKey != "" {
		return intent, nil
	}
	ref := "demo-" + g.newID()
	if g.intents == nil {
		g.intents = make(map[string]string)
		g.byKey = make(map[string]policies.PaymentIntent)
	}
	g.intents[ref] = bookingID
	intent := policies.PaymentIntent{Reference: ref, CheckoutURL: g.CheckoutBaseURL + "/checkout/" + ref}
	if idempotencyKey != "" {
		g.byKey[idempotencyKey] = intent
	}
	return intent, nil
}

// Refund issues at most one refund per idempotency key.
func (g *DemoGateway) Refund(ctx context.Context, reference string, amount money.Money, idempotencyKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if idempotencyKey != "" {
		if g.refunded[idempotencyKey] {
			return nil
		}
		if g.refunded == nil {
			g.refunded = make(map[string]bool)
		}
		g.refunded[idempotencyKey] = true
	}
	g.refunds = append(g.refunds, Refund{Reference: reference, Amount: amount, Key: idempotencyKey})
	return nil
}

// BookingFor returns the booking an intent was created for.
func (g *DemoGateway) BookingFor(reference string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.intents[reference]
	return id, ok
}

// Intents counts the distinct intents created.
func (g *DemoGateway) Intents() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.intents)
}

func (g *DemoGateway) Refunds() []Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Refund(nil), g.refunds...)
}

func (g *DemoGateway) newID() string {
	if g.IDGenerator != nil {
		return g.IDGenerator()
	}
	return uuid.NewString()
}

var _ policies.PaymentsPort = (*DemoGateway)(nil)

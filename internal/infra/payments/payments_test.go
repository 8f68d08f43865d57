package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handlerpayments "doorly/internal/app/handlers/payments"
	"doorly/internal/domain/shared/money"
)

func TestEventCommandMapsStatuses(t *testing.T) {
	cases := map[string]handlerpayments.Outcome{
		"approved": handlerpayments.OutcomeApproved,
		"APPROVED": handlerpayments.OutcomeApproved,
		"rejected": handlerpayments.OutcomeRejected,
		"declined": handlerpayments.OutcomeRejected,
	}
	for status, want := range cases {
		cmd, err := Event{ID: "evt-1", Status: status, ExternalReference: "booking-1"}.Command()
		require.NoError(t, err, status)
		assert.Equal(t, want, cmd.Outcome, status)
		assert.Equal(t, "booking-1", cmd.BookingID)
		assert.Equal(t, "evt-1", cmd.EventID)
	}
}

func TestEventCommandRejectsIncompleteEvents(t *testing.T) {
	_, err := Event{Status: "approved", ExternalReference: "booking-1"}.Command()
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Event{ID: "evt-1", Status: "approved"}.Command()
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Event{ID: "evt-1", Status: "pending", PaymentReference: "pay-1"}.Command()
	assert.ErrorIs(t, err, ErrIgnoredStatus)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"evt-1"}`)
	sig := Sign("secret", body)

	assert.NoError(t, Verify("secret", body, sig))
	assert.NoError(t, Verify("secret", body, "sha256="+sig))
	assert.ErrorIs(t, Verify("secret", body, Sign("other", body)), ErrBadSignature)
	assert.ErrorIs(t, Verify("secret", body, "zz"), ErrBadSignature)
	assert.NoError(t, Verify("", body, ""))
}

func TestDemoGatewayRecordsIntentsAndRefunds(t *testing.T) {
	gw := NewDemoGateway("http://localhost:8080/")
	gw.IDGenerator = func() string { return "abc" }
	ctx := context.Background()

	intent, err := gw.CreateIntent(ctx, "booking-1", money.Money{Amount: 100, Currency: "ARS"}, "intent:booking-1")
	require.NoError(t, err)
	assert.Equal(t, "demo-abc", intent.Reference)
	assert.Equal(t, "http://localhost:8080/checkout/demo-abc", intent.CheckoutURL)
	id, ok := gw.BookingFor("demo-abc")
	assert.True(t, ok)
	assert.Equal(t, "booking-1", id)

	require.NoError(t, gw.Refund(ctx, "demo-abc", money.Money{Amount: 100, Currency: "ARS"}, "refund:booking-1:cancel"))
	assert.Equal(t, []Refund{{Reference: "demo-abc", Amount: money.Money{Amount: 100, Currency: "ARS"}, Key: "refund:booking-1:cancel"}}, gw.Refunds())
}

func TestDemoGatewayHonoursIdempotencyKeys(t *testing.T) {
	gw := NewDemoGateway("http://localhost:8080")
	n := 0
	gw.IDGenerator = func() string {
		n++
		return fmt.Sprintf("ref-%d", n)
	}
	ctx := context.Background()
	amount := money.Money{Amount: 100, Currency: "ARS"}

	first, err := gw.CreateIntent(ctx, "booking-1", amount, "intent:booking-1")
	require.NoError(t, err)
	again, err := gw.CreateIntent(ctx, "booking-1", amount, "intent:booking-1")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, gw.Intents())

	for i := 0; i < 3; i++ {
		require.NoError(t, gw.Refund(ctx, first.Reference, amount, "refund:booking-1:cancel"))
	}
	require.NoError(t, gw.Refund(ctx, first.Reference, amount, "refund:booking-1:dispute"))
	assert.Len(t, gw.Refunds(), 2)
}

func TestHTTPGatewayCreatesIntent(t *testing.T) {
	var got intentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/preferences", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "intent:booking-1", r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(intentResponse{ID: "pref-1", CheckoutURL: "https://pay.example/pref-1"})
	}))
	defer srv.Close()
	gw := &HTTPGateway{Client: srv.Client(), Endpoint: srv.URL, Token: "token"}

	intent, err := gw.CreateIntent(context.Background(), "booking-1", money.Money{Amount: 2500, Currency: "ARS"}, "intent:booking-1")

	require.NoError(t, err)
	assert.Equal(t, "pref-1", intent.Reference)
	assert.Equal(t, "https://pay.example/pref-1", intent.CheckoutURL)
	assert.Equal(t, intentRequest{ExternalReference: "booking-1", Amount: 2500, Currency: "ARS"}, got)
}

func TestHTTPGatewaySurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay-1/refunds", r.URL.Path)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()
	gw := &HTTPGateway{Client: srv.Client(), Endpoint: srv.URL}

	err := gw.Refund(context.Background(), "pay-1", money.Money{Amount: 10, Currency: "ARS"}, "refund:b-1:cancel")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

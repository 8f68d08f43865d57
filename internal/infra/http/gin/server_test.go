package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorly/internal/app/engine"
	bookingapp "doorly/internal/app/handlers/booking"
	"doorly/internal/app/middleware"
	"doorly/internal/app/policies"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainreviews "doorly/internal/domain/reviews"
	"doorly/internal/infra/config"
	"doorly/internal/infra/obs"
	"doorly/internal/infra/payments"
	"doorly/internal/infra/storage/memory"
)

const (
	webhookSecret = "whsec"
	adminToken    = "admin-secret"
)

type testServer struct {
	router  *gin.Engine
	gateway *payments.DemoGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	now := time.Date(2030, 1, 10, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := domainavailability.Policy{}
	box := memory.NewOutbox()
	store := memory.NewStore(memory.WithPolicy(policy), memory.WithClock(clock), memory.WithOutbox(box))
	factory := memory.Factory{Store: store}
	gateway := payments.NewDemoGateway("http://localhost:8080")

	eng, err := engine.New(engine.Deps{
		UoWFactory:   factory,
		Outbox:       box,
		Idempotency:  memory.NewIdempotencyStore(time.Hour),
		Locker:       memory.NewKeyedLocker(),
		Inbox:        memory.NewInbox(),
		Pricing:      policies.CalculatorPricing{Calculator: domainpricing.Calculator{FeeBasisPoints: 1000, FeeWaived: true}},
		Payments:     gateway,
		Policy:       policy,
		RefundPolicy: domainbooking.DefaultRefundPolicy(),
		Clock:        clock,
		Logger:       logger,
	})
	require.NoError(t, err)

	ctx := context.Background()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:    "listing-1",
		Host:  "host-1",
		Title: "Storage room",
		Rates: domainlistings.RateTable{Daily: 1500, Currency: "ARS"},
		Now:   now,
	})
	require.NoError(t, err)
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, listing))
	require.NoError(t, unit.Commit(ctx))

	cfg := config.Config{Env: "test", HTTPAddr: ":0", AdminToken: adminToken}
	router := NewRouter(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: eng.Commands, Queries: eng.Queries, Logger: logger},
		HostBooking:    HostBookingHandler{Queries: eng.Queries, Logger: logger},
		Me:             MeHandler{Queries: eng.Queries, Logger: logger},
		Availability:   AvailabilityHandler{Queries: eng.Queries, Logger: logger},
		Listing:        ListingHandler{Queries: eng.Queries, Logger: logger},
		Reviews:        ReviewsHandler{Commands: eng.Commands, Queries: eng.Queries, Logger: logger},
		Payments:       PaymentWebhookHandler{Commands: eng.Commands, Secret: webhookSecret, Logger: logger},
		Admin:          AdminHandler{Commands: eng.Commands, Logger: logger},
		AuthMiddleware: AuthMiddleware{AdminToken: adminToken}.Handle,
	})
	return &testServer{router: router, gateway: gateway}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) reserve(t *testing.T, user, start, end string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/v1/listings/listing-1/reservations", user, map[string]string{"start_date": start, "end_date": end}, nil)
}

func (s *testServer) webhook(t *testing.T, event payments.Event, secret string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(payments.SignatureHeader, "sha256="+payments.Sign(secret, raw))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestReserve_CreatesHold(t *testing.T) {
	s := newTestServer(t)

	rec := s.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[bookingapp.ReservationResult](t, rec)
	assert.Equal(t, "HOLD", res.Status)
	assert.Equal(t, int64(4500), res.TotalAmount.Amount)
	assert.NotEmpty(t, rec.Header().Get(obs.RequestIDHeader))
}

func TestReserve_RequiresUser(t *testing.T) {
	s := newTestServer(t)

	rec := s.reserve(t, "", "2030-02-01", "2030-02-03")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReserve_OverlapIsConflictWithReason(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03").Code)

	rec := s.reserve(t, "renter-2", "2030-02-03", "2030-02-05")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "OVERLAP", decode[errorResponse](t, rec).Reason)
}

func TestReserve_BadRangeIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	rec := s.reserve(t, "renter-1", "2030-02-05", "2030-02-01")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RANGE", decode[errorResponse](t, rec).Reason)

	rec = s.do(t, http.MethodPost, "/api/v1/listings/listing-1/reservations", "renter-1", map[string]string{"start_date": "2030-02-01"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserve_UnknownListingIsNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/listings/nope/reservations", "renter-1", map[string]string{"start_date": "2030-02-01", "end_date": "2030-02-02"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserve_IdempotencyKeyIsPerRenter(t *testing.T) {
	s := newTestServer(t)
	key := map[string]string{IdempotencyHeader: "req-1"}
	path := "/api/v1/listings/listing-1/reservations"

	rec := s.do(t, http.MethodPost, path, "renter-1", map[string]string{"start_date": "2030-02-01", "end_date": "2030-02-03"}, key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[bookingapp.ReservationResult](t, rec)

	rec = s.do(t, http.MethodPost, path, "renter-2", map[string]string{"start_date": "2030-03-01", "end_date": "2030-03-03"}, key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEqual(t, first.BookingID, decode[bookingapp.ReservationResult](t, rec).BookingID)

	rec = s.do(t, http.MethodPost, path, "renter-1", map[string]string{"start_date": "2030-04-01", "end_date": "2030-04-03"}, key)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebhook_EventWithoutReferenceIsRefused(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))

	rec := s.webhook(t, payments.Event{ID: "evt-1", Status: "approved", ExternalReference: hold.BookingID}, webhookSecret)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.webhook(t, payments.Event{ID: "evt-1", Status: "approved", ExternalReference: hold.BookingID, PaymentReference: hold.PaymentReference}, webhookSecret)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestWebhook_ApprovesBooking(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))

	rec := s.webhook(t, payments.Event{ID: "evt-1", Status: "approved", ExternalReference: hold.BookingID, PaymentReference: hold.PaymentReference}, webhookSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/bookings/"+hold.BookingID, "renter-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var booking struct {
		Status       string `json:"status"`
		ChatUnlocked bool   `json:"chat_unlocked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	assert.Equal(t, "CONFIRMED", booking.Status)
	assert.True(t, booking.ChatUnlocked)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))

	rec := s.webhook(t, payments.Event{ID: "evt-1", Status: "approved", ExternalReference: hold.BookingID, PaymentReference: hold.PaymentReference}, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_PendingStatusIsIgnored(t *testing.T) {
	s := newTestServer(t)

	rec := s.webhook(t, payments.Event{ID: "evt-1", Status: "in_process", ExternalReference: "b-1"}, webhookSecret)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestWebhook_AnomalyIsConflict(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))
	require.Equal(t, http.StatusOK, s.webhook(t, payments.Event{ID: "evt-1", Status: "approved", ExternalReference: hold.BookingID, PaymentReference: hold.PaymentReference}, webhookSecret).Code)

	rec := s.webhook(t, payments.Event{ID: "evt-2", Status: "rejected", ExternalReference: hold.BookingID, PaymentReference: hold.PaymentReference}, webhookSecret)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancel_OnlyParticipants(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))

	rec := s.do(t, http.MethodPost, "/api/v1/bookings/"+hold.BookingID+"/cancel", "stranger", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings/"+hold.BookingID+"/cancel", "host-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "host", decode[bookingapp.CancellationResult](t, rec).CancelledBy)
}

func TestHostAndRenterListings(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))

	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	rec := s.do(t, http.MethodGet, "/api/v1/host/bookings?status=hold", "host-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, hold.BookingID, list.Items[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/me/bookings", "renter-2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Items)
}

func TestAvailabilityAndQuote(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03").Code)

	rec := s.do(t, http.MethodGet, "/api/v1/listings/listing-1/availability", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"start_date":"2030-02-01"`)
	assert.NotContains(t, rec.Body.String(), "booking_id")

	rec = s.do(t, http.MethodGet, "/api/v1/listings/listing-1/quote?start=2030-03-01&end=2030-03-02", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "3000")
}

func TestAdminResolve_RequiresToken(t *testing.T) {
	s := newTestServer(t)
	hold := decode[bookingapp.ReservationResult](t, s.reserve(t, "renter-1", "2030-02-01", "2030-02-03"))
	require.Equal(t, http.StatusOK, s.webhook(t, payments.Event{ID: "evt-1", Status: "approved", ExternalReference: hold.BookingID, PaymentReference: hold.PaymentReference}, webhookSecret).Code)
	rec := s.do(t, http.MethodPost, "/api/v1/bookings/"+hold.BookingID+"/disputes", "host-1", map[string]string{"reason": "unit left dirty"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	path := fmt.Sprintf("/api/v1/admin/bookings/%s/dispute/resolve", hold.BookingID)
	rec = s.do(t, http.MethodPost, path, "host-1", map[string]string{"resolution": "refund"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, path, "", map[string]string{"resolution": "refund"}, map[string]string{AdminTokenHeader: adminToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "REFUNDED", decode[bookingapp.DisputeResult](t, rec).Status)
	assert.Len(t, s.gateway.Refunds(), 1)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domainbooking.Reject(domainbooking.ErrOverlap), http.StatusConflict},
		{domainbooking.Reject(domainpricing.ErrRateMissing), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrap: %w", middleware.ErrValidation), http.StatusBadRequest},
		{domainreviews.ErrWindowClosed, http.StatusUnprocessableEntity},
		{middleware.ErrIdempotencyKeyReused, http.StatusUnprocessableEntity},
		{domainreviews.ErrAlreadyReviewed, http.StatusConflict},
		{policies.ErrLockTimeout, http.StatusServiceUnavailable},
		{policies.ErrPaymentGateway, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, _ := statusFor(tc.err)
		assert.Equal(t, tc.want, got, tc.err.Error())
	}
}

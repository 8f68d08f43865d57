package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	availabilityapp "doorly/internal/app/handlers/availability"
	bookingapp "doorly/internal/app/handlers/booking"
	paymentsapp "doorly/internal/app/handlers/payments"
	reviewsapp "doorly/internal/app/handlers/reviews"
	"doorly/internal/app/middleware"
	"doorly/internal/app/policies"
	"doorly/internal/app/queries"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainreviews "doorly/internal/domain/reviews"
	"doorly/internal/infra/payments"
	"doorly/internal/infra/storage/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// flakyFactory fails the next n commits as a conflicting writer would.
type flakyFactory struct {
	memory.Factory
	failures atomic.Int32
}

func (f *flakyFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.Factory.Begin(ctx, opts)
	if err != nil || opts.ReadOnly {
		return unit, err
	}
	return &flakyUnit{Unit: unit.(*memory.Unit), factory: f}, nil
}

type flakyUnit struct {
	*memory.Unit
	factory *flakyFactory
}

func (u *flakyUnit) Commit(ctx context.Context) error {
	if u.factory.failures.Add(-1) >= 0 {
		_ = u.Unit.Rollback(ctx)
		return domainbooking.ErrConcurrentModification
	}
	u.factory.failures.Store(0)
	return u.Unit.Commit(ctx)
}

type harness struct {
	engine  *Engine
	store   *memory.Store
	factory *flakyFactory
	box     *memory.Outbox
	gateway *payments.DemoGateway
	clock   *testClock
}

const (
	testListing = "listing-1"
	testHost    = "host-1"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{now: time.Date(2030, 1, 10, 10, 0, 0, 0, time.UTC)}
	policy := domainavailability.Policy{}
	box := memory.NewOutbox()
	store := memory.NewStore(memory.WithPolicy(policy), memory.WithClock(clock.Now), memory.WithOutbox(box))
	gateway := payments.NewDemoGateway("http://localhost:8080")
	factory := &flakyFactory{Factory: memory.Factory{Store: store}}

	eng, err := New(Deps{
		UoWFactory:   factory,
		Outbox:       box,
		Idempotency:  memory.NewIdempotencyStore(time.Hour),
		Locker:       memory.NewKeyedLocker(),
		Inbox:        memory.NewInbox(),
		Pricing:      policies.CalculatorPricing{Calculator: domainpricing.Calculator{}},
		Payments:     gateway,
		Policy:       policy,
		RefundPolicy: domainbooking.DefaultRefundPolicy(),
		Clock:        clock.Now,
		RetryBackoff: time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	h := &harness{engine: eng, store: store, factory: factory, box: box, gateway: gateway, clock: clock}
	h.seedListing(t)
	return h
}

func (h *harness) seedListing(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:    testListing,
		Host:  testHost,
		Title: "Garage near the station",
		Rates: domainlistings.RateTable{Daily: 1000, Weekly: domainlistings.Rate(6000), Currency: "ARS"},
		Now:   h.clock.Now(),
	})
	require.NoError(t, err)
	unit, err := memory.Factory{Store: h.store}.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, listing))
	require.NoError(t, unit.Commit(ctx))
}

func (h *harness) reserve(t *testing.T, renter, start, end string) (*bookingapp.ReservationResult, error) {
	t.Helper()
	return commands.Dispatch[bookingapp.RequestReservationCommand, *bookingapp.ReservationResult](context.Background(), h.engine.Commands, bookingapp.RequestReservationCommand{
		ListingID: testListing,
		RenterID:  renter,
		StartDate: start,
		EndDate:   end,
	})
}

func (h *harness) pay(t *testing.T, eventID, bookingID string, outcome paymentsapp.Outcome) (*paymentsapp.PaymentEventResult, error) {
	t.Helper()
	return commands.Dispatch[paymentsapp.ApplyPaymentEventCommand, *paymentsapp.PaymentEventResult](context.Background(), h.engine.Commands, paymentsapp.ApplyPaymentEventCommand{
		EventID:          eventID,
		BookingID:        bookingID,
		PaymentReference: h.reference(t, bookingID),
		Outcome:          outcome,
	})
}

// reference returns the payment reference attached to a stored booking.
func (h *harness) reference(t *testing.T, bookingID string) string {
	t.Helper()
	ctx := context.Background()
	unit, err := memory.Factory{Store: h.store}.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer func() { _ = unit.Rollback(ctx) }()
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(bookingID))
	if err != nil {
		return ""
	}
	return b.PaymentReference
}

// failCommits makes the next n write commits report a conflict.
func (h *harness) failCommits(n int32) {
	h.factory.failures.Store(n)
}

func (h *harness) booking(t *testing.T, id, user string) dto.Booking {
	t.Helper()
	out, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](context.Background(), h.engine.Queries, bookingapp.GetBookingQuery{BookingID: id, UserID: user})
	require.NoError(t, err)
	return out
}

func (h *harness) count(name string) int {
	n := 0
	for _, got := range h.box.Names() {
		if got == name {
			n++
		}
	}
	return n
}

func TestNew_RequiresPorts(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestReservation_HoldIsPricedServerSide(t *testing.T) {
	h := newHarness(t)

	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-07")
	require.NoError(t, err)

	assert.Equal(t, string(domainbooking.StatusHold), res.Status)
	assert.Equal(t, int64(6000), res.TotalAmount.Amount)
	assert.NotEmpty(t, res.PaymentReference)
	assert.Contains(t, res.CheckoutURL, res.PaymentReference)
	assert.Equal(t, h.clock.Now().Add(domainbooking.DefaultHoldTTL), res.HoldExpiresAt)
	assert.Equal(t, 1, h.count("booking.held"))
	assert.Equal(t, 1, h.count("booking.payment_requested"))
}

func TestReservation_ConcurrentRequestsForSameDates(t *testing.T) {
	h := newHarness(t)

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		overlaps  int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.reserve(t, "renter-"+string(rune('a'+i)), "2030-03-01", "2030-03-05")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if reason, ok := domainbooking.RejectionReasonOf(err); ok && reason == domainbooking.RejectOverlap {
				overlaps++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, overlaps)
}

func TestReservation_RejectsInvalidRangeAndPastStart(t *testing.T) {
	h := newHarness(t)

	_, err := h.reserve(t, "renter-1", "2030-02-05", "2030-02-01")
	reason, ok := domainbooking.RejectionReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, domainbooking.RejectInvalidRange, reason)

	_, err = h.reserve(t, "renter-1", "2030-01-01", "2030-01-03")
	reason, ok = domainbooking.RejectionReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, domainbooking.RejectInvalidRange, reason)
}

func TestReservation_MissingRenterFailsValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.reserve(t, "", "2030-02-01", "2030-02-03")
	assert.ErrorIs(t, err, middleware.ErrValidation)
}

func TestReservation_IdempotencyKeyReplaysResult(t *testing.T) {
	h := newHarness(t)
	cmd := bookingapp.RequestReservationCommand{
		ListingID:       testListing,
		RenterID:        "renter-1",
		StartDate:       "2030-02-01",
		EndDate:         "2030-02-03",
		IdempotencyKeyV: "req-1",
	}

	first, err := commands.Dispatch[bookingapp.RequestReservationCommand, *bookingapp.ReservationResult](context.Background(), h.engine.Commands, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[bookingapp.RequestReservationCommand, *bookingapp.ReservationResult](context.Background(), h.engine.Commands, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Equal(t, 1, h.count("booking.held"))
}

func TestPayment_ApprovalIsIdempotent(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	first, err := h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, string(domainbooking.StatusConfirmed), first.Status)

	again, err := h.pay(t, "evt-2", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.False(t, again.Anomaly)

	assert.Equal(t, 1, h.count("booking.confirmed"))
	got := h.booking(t, res.BookingID, "renter-1")
	assert.Equal(t, string(domainbooking.StatusConfirmed), got.Status)
	assert.True(t, got.ChatUnlocked)
}

func TestPayment_DuplicateEventIDIsSkipped(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)
	dup, err := h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	assert.True(t, dup.Duplicate)
	assert.Equal(t, 1, h.count("booking.confirmed"))
}

func TestPayment_FailedEventCanBeRedelivered(t *testing.T) {
	h := newHarness(t)

	_, err := h.pay(t, "evt-9", "missing", paymentsapp.OutcomeApproved)
	require.ErrorIs(t, err, domainbooking.ErrNotFound)

	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)
	out, err := h.pay(t, "evt-9", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.True(t, out.Applied)
}

func TestPayment_ApprovalSurvivesCommitConflict(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	h.failCommits(1)
	out, err := h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	assert.False(t, out.Duplicate)
	assert.True(t, out.Applied)
	assert.Equal(t, string(domainbooking.StatusConfirmed), h.booking(t, res.BookingID, "renter-1").Status)
	assert.Equal(t, 1, h.count("booking.confirmed"))
}

func TestPayment_EventRedeliveredAfterExhaustedRetries(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	h.failCommits(3)
	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.ErrorIs(t, err, domainbooking.ErrConcurrentModification)
	assert.Equal(t, string(domainbooking.StatusHold), h.booking(t, res.BookingID, "renter-1").Status)

	out, err := h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Equal(t, string(domainbooking.StatusConfirmed), out.Status)
}

func TestPayment_EventWithoutReferenceIsRejected(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	_, err = commands.Dispatch[paymentsapp.ApplyPaymentEventCommand, *paymentsapp.PaymentEventResult](context.Background(), h.engine.Commands, paymentsapp.ApplyPaymentEventCommand{
		EventID:   "evt-1",
		BookingID: res.BookingID,
		Outcome:   paymentsapp.OutcomeApproved,
	})
	require.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
	assert.Equal(t, string(domainbooking.StatusHold), h.booking(t, res.BookingID, "renter-1").Status)
}

func TestPayment_RejectionAfterApprovalIsAnomaly(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)
	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	out, err := h.pay(t, "evt-2", res.BookingID, paymentsapp.OutcomeRejected)
	require.NoError(t, err)

	assert.True(t, out.Anomaly)
	assert.Equal(t, string(domainbooking.StatusConfirmed), out.Status)
	assert.Equal(t, 1, h.count("booking.payment_anomaly"))
}

func TestPayment_RejectionReleasesDates(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	out, err := h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeRejected)
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusCancelled), out.Status)

	_, err = h.reserve(t, "renter-2", "2030-02-01", "2030-02-03")
	assert.NoError(t, err)
}

func TestPayment_LateApprovalReinstatesFreeDates(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	h.clock.Advance(domainbooking.DefaultHoldTTL + time.Minute)
	out, err := h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	assert.True(t, out.Applied)
	assert.False(t, out.Conflict)
	assert.Equal(t, string(domainbooking.StatusConfirmed), out.Status)
	assert.Empty(t, h.gateway.Refunds())
}

func TestPayment_LateApprovalRefundsTakenDates(t *testing.T) {
	h := newHarness(t)
	first, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	h.clock.Advance(domainbooking.DefaultHoldTTL + time.Minute)
	second, err := h.reserve(t, "renter-2", "2030-02-02", "2030-02-04")
	require.NoError(t, err)

	out, err := h.pay(t, "evt-1", first.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	assert.True(t, out.Conflict)
	assert.Equal(t, string(domainbooking.StatusRefunded), out.Status)
	refunds := h.gateway.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, first.PaymentReference, refunds[0].Reference)
	assert.Equal(t, first.TotalAmount.Amount, refunds[0].Amount.Amount)

	other := h.booking(t, second.BookingID, "renter-2")
	assert.Equal(t, string(domainbooking.StatusHold), other.Status)
}

func TestCancel_ConfirmedBookingEarlyGetsFullRefund(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)
	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	out, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancellationResult](context.Background(), h.engine.Commands, bookingapp.CancelBookingCommand{
		BookingID: res.BookingID,
		UserID:    "renter-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(domainbooking.StatusCancelled), out.Status)
	assert.Equal(t, string(domainbooking.ActorRenter), out.CancelledBy)
	assert.Equal(t, res.TotalAmount.Amount, out.Refund.Amount)
	require.Len(t, h.gateway.Refunds(), 1)
}

func TestCancel_ConflictRetryRefundsOnce(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)
	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	h.failCommits(1)
	out, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancellationResult](context.Background(), h.engine.Commands, bookingapp.CancelBookingCommand{
		BookingID: res.BookingID,
		UserID:    "renter-1",
	})
	require.NoError(t, err)

	assert.Equal(t, string(domainbooking.StatusCancelled), out.Status)
	refunds := h.gateway.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, policies.RefundKey(res.BookingID, policies.RefundCancellation), refunds[0].Key)
}

func TestReservation_ConflictRetryReusesPaymentIntent(t *testing.T) {
	h := newHarness(t)

	h.failCommits(1)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	assert.Equal(t, 1, h.gateway.Intents())
	id, ok := h.gateway.BookingFor(res.PaymentReference)
	require.True(t, ok)
	assert.Equal(t, res.BookingID, id)
	assert.Equal(t, res.PaymentReference, h.reference(t, res.BookingID))
}

func TestCancel_StrangerIsRefused(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	_, err = commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancellationResult](context.Background(), h.engine.Commands, bookingapp.CancelBookingCommand{
		BookingID: res.BookingID,
		UserID:    "someone-else",
	})
	assert.ErrorIs(t, err, domainbooking.ErrNotParticipant)
}

func TestSweeps_ExpireHoldsAndCompleteStays(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	unpaid, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)
	paid, err := h.reserve(t, "renter-2", "2030-01-20", "2030-01-22")
	require.NoError(t, err)
	_, err = h.pay(t, "evt-1", paid.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	h.clock.Advance(domainbooking.DefaultHoldTTL + time.Minute)
	expired, err := h.engine.Sweeps.ExpireHolds(ctx, bookingapp.ExpireHoldsCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, expired.Updated)
	assert.Equal(t, 1, h.count("booking.hold_expired"))
	assert.Equal(t, string(domainbooking.StatusCancelled), h.booking(t, unpaid.BookingID, "renter-1").Status)

	h.clock.Set(time.Date(2030, 1, 23, 9, 0, 0, 0, time.UTC))
	completed, err := h.engine.Sweeps.CompleteStays(ctx, bookingapp.CompleteStaysCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, completed.Updated)
	assert.Equal(t, 1, h.count("booking.completed"))

	again, err := h.engine.Sweeps.CompleteStays(ctx, bookingapp.CompleteStaysCommand{})
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
}

func TestDispute_OpenAndRefund(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)
	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	opened, err := commands.Dispatch[bookingapp.OpenDisputeCommand, *bookingapp.DisputeResult](ctx, h.engine.Commands, bookingapp.OpenDisputeCommand{
		BookingID:  res.BookingID,
		ReporterID: testHost,
		Reason:     "renter left the unit damaged",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusDisputed), opened.Status)

	_, err = h.reserve(t, "renter-2", "2030-02-02", "2030-02-02")
	reason, _ := domainbooking.RejectionReasonOf(err)
	assert.Equal(t, domainbooking.RejectOverlap, reason)

	resolved, err := commands.Dispatch[bookingapp.ResolveDisputeCommand, *bookingapp.DisputeResult](ctx, h.engine.Commands, bookingapp.ResolveDisputeCommand{
		BookingID:  res.BookingID,
		AdminID:    "admin",
		Resolution: "refund",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StatusRefunded), resolved.Status)
	require.NotNil(t, resolved.Refund)
	assert.Equal(t, res.TotalAmount.Amount, resolved.Refund.Amount)
}

func TestReviews_SubmitAfterStayAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.reserve(t, "renter-1", "2030-01-20", "2030-01-22")
	require.NoError(t, err)
	_, err = h.pay(t, "evt-1", res.BookingID, paymentsapp.OutcomeApproved)
	require.NoError(t, err)

	submit := reviewsapp.SubmitReviewCommand{
		BookingID: res.BookingID,
		AuthorID:  "renter-1",
		Rating:    5,
		Comment:   "Clean, dry and easy to reach.",
	}
	_, err = commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](ctx, h.engine.Commands, submit)
	require.ErrorIs(t, err, domainreviews.ErrWindowClosed)

	h.clock.Set(time.Date(2030, 1, 24, 12, 0, 0, 0, time.UTC))
	window, err := queries.Ask[bookingapp.GetReviewWindowQuery, dto.ReviewWindow](ctx, h.engine.Queries, bookingapp.GetReviewWindowQuery{BookingID: res.BookingID, UserID: "renter-1"})
	require.NoError(t, err)
	assert.True(t, window.Eligible)

	review, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](ctx, h.engine.Commands, submit)
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)

	_, err = commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](ctx, h.engine.Commands, submit)
	assert.Error(t, err)

	list, err := queries.Ask[reviewsapp.ListListingReviewsQuery, dto.ReviewCollection](ctx, h.engine.Queries, reviewsapp.ListListingReviewsQuery{ListingID: testListing})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, review.ID, list.Items[0].ID)
}

func TestQueries_AvailabilityHidesExpiredHolds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	avail, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](ctx, h.engine.Queries, availabilityapp.GetAvailabilityQuery{ListingID: testListing})
	require.NoError(t, err)
	require.Len(t, avail.Blocked, 1)
	assert.Equal(t, "2030-02-01", avail.Blocked[0].StartDate)

	h.clock.Advance(domainbooking.DefaultHoldTTL)
	avail, err = queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](ctx, h.engine.Queries, availabilityapp.GetAvailabilityQuery{ListingID: testListing})
	require.NoError(t, err)
	assert.Empty(t, avail.Blocked)
}

func TestQueries_BookingVisibleOnlyToParticipants(t *testing.T) {
	h := newHarness(t)
	res, err := h.reserve(t, "renter-1", "2030-02-01", "2030-02-03")
	require.NoError(t, err)

	_, err = queries.Ask[bookingapp.GetBookingQuery, dto.Booking](context.Background(), h.engine.Queries, bookingapp.GetBookingQuery{BookingID: res.BookingID, UserID: "stranger"})
	assert.ErrorIs(t, err, domainbooking.ErrNotParticipant)

	hostView, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.BookingCollection](context.Background(), h.engine.Queries, bookingapp.ListHostBookingsQuery{HostID: testHost})
	require.NoError(t, err)
	require.Len(t, hostView.Items, 1)
	assert.Equal(t, res.BookingID, hostView.Items[0].ID)
}

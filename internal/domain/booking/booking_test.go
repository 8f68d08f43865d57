package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorly/internal/domain/pricing"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/money"
)

var clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHold(t *testing.T, start, end string) *Booking {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	b, err := NewHold(HoldParams{
		ID:        "bk-1",
		ListingID: "lst-1",
		RenterID:  "renter-1",
		HostID:    "host-1",
		Range:     dr,
		Price:     pricing.PriceBreakdown{Days: dr.Days(), Total: money.Must(10000, "USD"), Subtotal: money.Must(10000, "USD")},
		Now:       clock,
	})
	require.NoError(t, err)
	require.NoError(t, b.AttachPaymentReference("pay-1", clock))
	b.ClearEvents()
	return b
}

func eventNames(b *Booking) []string {
	var names []string
	for _, ev := range b.PendingEvents() {
		names = append(names, ev.EventName())
	}
	return names
}

func TestNewHold_DefaultsAndEvent(t *testing.T) {
	dr, err := daterange.Parse("2026-03-10", "2026-03-12")
	require.NoError(t, err)
	b, err := NewHold(HoldParams{
		ID: "bk-1", ListingID: "lst-1", RenterID: "r", HostID: "h", Range: dr,
		Price: pricing.PriceBreakdown{Total: money.Must(3000, "USD")}, Now: clock,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusHold, b.Status)
	assert.Equal(t, clock.Add(DefaultHoldTTL), b.HoldExpiresAt)
	assert.Equal(t, []string{"booking.held"}, eventNames(b))
	assert.True(t, b.BlocksAt(clock))
}

func TestNewHold_RequiresParticipants(t *testing.T) {
	dr, _ := daterange.Parse("2026-03-10", "2026-03-12")
	_, err := NewHold(HoldParams{ID: "bk", HostID: "h", Range: dr, Price: pricing.PriceBreakdown{Total: money.Must(1, "USD")}, Now: clock})
	assert.ErrorIs(t, err, ErrRenterRequired)
	_, err = NewHold(HoldParams{ID: "bk", RenterID: "r", Range: dr, Price: pricing.PriceBreakdown{Total: money.Must(1, "USD")}, Now: clock})
	assert.ErrorIs(t, err, ErrHostRequired)
}

func TestValidateStay(t *testing.T) {
	past, _ := daterange.Parse("2026-02-27", "2026-03-02")
	assert.ErrorIs(t, ValidateStay(past, clock), ErrStartInPast)
	today, _ := daterange.Parse("2026-03-01", "2026-03-02")
	assert.NoError(t, ValidateStay(today, clock))
}

func TestApprove_IsIdempotent(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")

	applied, err := b.Approve("pay-1", clock.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = b.Approve("pay-1", clock.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, []string{"booking.confirmed"}, eventNames(b))
	assert.Equal(t, clock.Add(time.Minute), b.PaidAt)
}

func TestApprove_ReferenceMismatch(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")
	_, err := b.Approve("other", clock)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrStalePaymentEvent)
	assert.Equal(t, StatusHold, b.Status)
}

func TestPaymentEvents_RequireAttachedReference(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")

	applied, err := b.Approve("", clock)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, applied)
	assert.Contains(t, err.Error(), "payment reference missing")

	applied, err = b.RejectPayment("  ", clock)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, applied)
	assert.Equal(t, StatusHold, b.Status)
	assert.Empty(t, eventNames(b))
}

func TestApprove_AfterRenterCancellationIsAnomaly(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")
	_, err := b.Cancel(ActorRenter, DefaultRefundPolicy(), clock)
	require.NoError(t, err)

	_, err = b.Approve("pay-1", clock.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrStalePaymentEvent)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusCancelled, te.From)
	assert.Equal(t, StatusCancelled, b.Status)
}

func TestApprove_AfterExpiryNeedsRevalidation(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")
	late := clock.Add(DefaultHoldTTL + time.Second)

	_, err := b.Approve("pay-1", late)
	assert.ErrorIs(t, err, ErrLateApproval)

	require.NoError(t, b.ReinstateLateApproval(late))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.True(t, b.Settled())
}

func TestApprove_AfterPersistedExpiryCanBeRefunded(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")
	late := clock.Add(DefaultHoldTTL + time.Second)
	require.NoError(t, b.Expire(late))
	assert.Equal(t, ReasonHoldExpired, b.CancelReason)

	_, err := b.Approve("pay-1", late)
	require.ErrorIs(t, err, ErrLateApproval)

	require.NoError(t, b.RefundUnfulfillable(late))
	assert.Equal(t, StatusRefunded, b.Status)
	assert.Equal(t, int64(10000), b.Refund.Amount)
	assert.False(t, b.BlocksAt(late))

	applied, err := b.Approve("pay-1", late.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestRejectPayment(t *testing.T) {
	b := newTestHold(t, "2026-03-10", "2026-03-12")
	applied, err := b.RejectPayment("pay-1", clock)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, ReasonPaymentRejected, b.CancelReason)

	applied, err = b.RejectPayment("pay-1", clock)
	require.NoError(t, err)
	assert.False(t, applied)

	paid := newTestHold(t, "2026-03-10", "2026-03-12")
	_, err = paid.Approve("pay-1", clock)
	require.NoError(t, err)
	_, err = paid.RejectPayment("pay-1", clock)
	assert.ErrorIs(t, err, ErrStalePaymentEvent)
	assert.Equal(t, StatusConfirmed, paid.Status)
}

func TestCancel_RefundTiers(t *testing.T) {
	// Stay starts 2026-03-04 00:00 UTC.
	start := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		before time.Duration
		actor  Actor
		refund int64
	}{
		{"72h renter", 72 * time.Hour, ActorRenter, 10000},
		{"48h renter", 48 * time.Hour, ActorRenter, 5000},
		{"36h renter", 36 * time.Hour, ActorRenter, 5000},
		{"24h renter", 24 * time.Hour, ActorRenter, 5000},
		{"12h renter", 12 * time.Hour, ActorRenter, 0},
		{"12h host", 12 * time.Hour, ActorHost, 10000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestHold(t, "2026-03-04", "2026-03-06")
			_, err := b.Approve("pay-1", clock)
			require.NoError(t, err)

			refund, err := b.Cancel(tc.actor, DefaultRefundPolicy(), start.Add(-tc.before))
			require.NoError(t, err)
			assert.Equal(t, tc.refund, refund.Amount)
			assert.Equal(t, StatusCancelled, b.Status)
			assert.False(t, b.BlocksAt(start))
		})
	}
}

func TestCancel_AfterStartFails(t *testing.T) {
	b := newTestHold(t, "2026-03-04", "2026-03-06")
	_, err := b.Approve("pay-1", clock)
	require.NoError(t, err)
	_, err = b.Cancel(ActorRenter, DefaultRefundPolicy(), time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, b.Status)
}

func TestCancel_TerminalStates(t *testing.T) {
	b := newTestHold(t, "2026-03-04", "2026-03-06")
	_, err := b.Cancel(ActorRenter, DefaultRefundPolicy(), clock)
	require.NoError(t, err)
	_, err = b.Cancel(ActorRenter, DefaultRefundPolicy(), clock)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusAt_Projections(t *testing.T) {
	b := newTestHold(t, "2026-03-04", "2026-03-06")
	assert.Equal(t, StatusHold, b.StatusAt(clock))
	assert.Equal(t, StatusCancelled, b.StatusAt(clock.Add(DefaultHoldTTL)))

	_, err := b.Approve("pay-1", clock)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.StatusAt(time.Date(2026, 3, 6, 23, 0, 0, 0, time.UTC)))
	ended := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, StatusCompleted, b.StatusAt(ended))
	assert.True(t, b.BlocksAt(ended))
	assert.True(t, b.ChatUnlocked(ended))

	assert.ErrorIs(t, b.Complete(ended.Add(-time.Hour)), ErrInvalidTransition)
	require.NoError(t, b.Complete(ended))
	assert.Equal(t, StatusCompleted, b.Status)
}

func TestDispute_OpenAndResolve(t *testing.T) {
	b := newTestHold(t, "2026-03-04", "2026-03-06")
	_, err := b.Approve("pay-1", clock)
	require.NoError(t, err)

	assert.ErrorIs(t, b.OpenDispute("stranger", "damaged goods", clock), ErrNotParticipant)
	assert.ErrorIs(t, b.OpenDispute("renter-1", " ", clock), ErrDisputeReasonRequired)
	require.NoError(t, b.OpenDispute("renter-1", "space was not accessible", clock))
	assert.Equal(t, StatusDisputed, b.Status)
	assert.True(t, b.BlocksAt(clock))
	assert.False(t, b.ChatUnlocked(clock))

	_, err = b.ResolveDispute("split", clock)
	assert.ErrorIs(t, err, ErrUnknownResolution)

	refund, err := b.ResolveDispute(ResolutionRelease, clock)
	require.NoError(t, err)
	assert.True(t, refund.IsZero())
	assert.Equal(t, StatusConfirmed, b.Status)

	assert.ErrorIs(t, b.OpenDispute("host-1", "second claim", clock), ErrInvalidTransition)
}

func TestDispute_RefundIsTerminal(t *testing.T) {
	b := newTestHold(t, "2026-03-04", "2026-03-06")
	_, err := b.Approve("pay-1", clock)
	require.NoError(t, err)
	require.NoError(t, b.OpenDispute("host-1", "renter left belongings", clock))

	refund, err := b.ResolveDispute(ResolutionRefund, clock)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), refund.Amount)
	assert.Equal(t, StatusRefunded, b.Status)

	_, err = b.Cancel(ActorHost, DefaultRefundPolicy(), clock)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReject_ClassifiesReasons(t *testing.T) {
	reason, ok := RejectionReasonOf(Reject(ErrOverlap))
	require.True(t, ok)
	assert.Equal(t, RejectOverlap, reason)

	reason, _ = RejectionReasonOf(Reject(daterange.ErrInvalidRange))
	assert.Equal(t, RejectInvalidRange, reason)

	reason, _ = RejectionReasonOf(Reject(pricing.ErrRateMissing))
	assert.Equal(t, RejectRateMissing, reason)

	other := errors.New("boom")
	assert.Equal(t, other, Reject(other))
	assert.ErrorIs(t, Reject(ErrOverlap), ErrOverlap)
}

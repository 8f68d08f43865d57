package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"doorly/internal/domain/listings"
	"doorly/internal/domain/pricing"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/events"
	"doorly/internal/domain/shared/money"
)

// DefaultHoldTTL bounds how long an unpaid hold may block the calendar.
const DefaultHoldTTL = 15 * time.Minute

var ErrStartInPast = errors.New("booking: start date is in the past")

type BookingID string

type Status string

const (
	StatusHold      Status = "HOLD"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusRefunded  Status = "REFUNDED"
	StatusDisputed  Status = "DISPUTED"
)

// BlockingStatuses remove a booking's dates from availability. A disputed
// booking keeps its dates because a release puts it back to confirmed.
var BlockingStatuses = []Status{StatusHold, StatusConfirmed, StatusCompleted, StatusDisputed}

func (s Status) Blocking() bool {
	for _, candidate := range BlockingStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

type CancelReason string

const (
	ReasonRenterCancelled CancelReason = "renter_cancelled"
	ReasonHostCancelled   CancelReason = "host_cancelled"
	ReasonHoldExpired     CancelReason = "hold_expired"
	ReasonPaymentRejected CancelReason = "payment_rejected"
	ReasonSlotReassigned  CancelReason = "slot_reassigned"
	ReasonDisputeRefunded CancelReason = "dispute_refunded"
)

type DisputeResolution string

const (
	ResolutionRefund  DisputeResolution = "refund"
	ResolutionRelease DisputeResolution = "release"
)

type Booking struct {
	ID                BookingID
	ListingID         listings.ListingID
	RenterID          string
	HostID            listings.HostID
	Range             daterange.DateRange
	Price             pricing.PriceBreakdown
	Status            Status
	PaymentReference  string
	HoldExpiresAt     time.Time
	PaidAt            time.Time
	CancelReason      CancelReason
	CancelledBy       Actor
	Refund            money.Money
	DisputeReason     string
	DisputedBy        string
	DisputeResolvedAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByPaymentReference(ctx context.Context, reference string) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID listings.HostID) ([]*Booking, error)
	ListByStatus(ctx context.Context, status Status) ([]*Booking, error)
}

type HoldParams struct {
	ID        BookingID
	ListingID listings.ListingID
	RenterID  string
	HostID    listings.HostID
	Range     daterange.DateRange
	Price     pricing.PriceBreakdown
	TTL       time.Duration
	Now       time.Time
}

// ValidateStay rejects stays starting before today's calendar date.
func ValidateStay(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if dr.Start.Before(daterange.Day(now.UTC())) {
		return ErrStartInPast
	}
	return nil
}

// NewHold creates a provisional booking. The price is fixed here and never
// recomputed.
func NewHold(params HoldParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id required")
	}
	if strings.TrimSpace(params.RenterID) == "" {
		return nil, ErrRenterRequired
	}
	if strings.TrimSpace(string(params.HostID)) == "" {
		return nil, ErrHostRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Price.Total.Currency == "" {
		return nil, pricing.ErrCurrencyUnset
	}
	if params.Price.Total.Amount < 0 {
		return nil, errors.New("booking: total must not be negative")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	now := params.Now.UTC()
	b := &Booking{
		ID:            params.ID,
		ListingID:     params.ListingID,
		RenterID:      strings.TrimSpace(params.RenterID),
		HostID:        params.HostID,
		Range:         params.Range,
		Price:         params.Price.Copy(),
		Status:        StatusHold,
		HoldExpiresAt: now.Add(ttl),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingHeld{
		BookingID:     b.ID,
		ListingID:     b.ListingID,
		RenterID:      b.RenterID,
		HostID:        b.HostID,
		Range:         b.Range,
		Total:         b.TotalAmount(),
		HoldExpiresAt: b.HoldExpiresAt,
		At:            now,
	})
	return b, nil
}

func (b *Booking) TotalAmount() money.Money {
	return b.Price.Total
}

// HoldExpired reports whether an unpaid hold has outlived its TTL at now.
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == StatusHold && !b.HoldExpiresAt.IsZero() && !now.Before(b.HoldExpiresAt)
}

// StatusAt is the status as observed at now: expired holds read as cancelled
// and confirmed stays whose last day has passed read as completed, whether or
// not a sweep persisted that yet.
func (b *Booking) StatusAt(now time.Time) Status {
	switch b.Status {
	case StatusHold:
		if b.HoldExpired(now) {
			return StatusCancelled
		}
	case StatusConfirmed:
		if !now.Before(b.Range.DayAfterEnd()) {
			return StatusCompleted
		}
	}
	return b.Status
}

func (b *Booking) BlocksAt(now time.Time) bool {
	return b.StatusAt(now).Blocking()
}

// Settled reports whether the gateway approved the payment.
func (b *Booking) Settled() bool {
	return !b.PaidAt.IsZero()
}

func (b *Booking) ChatUnlocked(now time.Time) bool {
	s := b.StatusAt(now)
	return s == StatusConfirmed || s == StatusCompleted
}

func (b *Booking) IsParticipant(userID string) bool {
	userID = strings.TrimSpace(userID)
	return userID != "" && (userID == b.RenterID || userID == string(b.HostID))
}

// AttachPaymentReference stores the gateway reference for the hold. It may be
// set once.
func (b *Booking) AttachPaymentReference(reference string, now time.Time) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return errors.New("booking: payment reference required")
	}
	if b.Status != StatusHold {
		return b.transitionError("attach payment reference", "")
	}
	if b.PaymentReference != "" && b.PaymentReference != reference {
		return b.transitionError("attach payment reference", "reference already set")
	}
	b.PaymentReference = reference
	b.touch(now)
	b.Record(PaymentRequested{BookingID: b.ID, Reference: reference, Amount: b.TotalAmount(), At: b.UpdatedAt})
	return nil
}

// Approve applies a payment approval. It returns false without error when the
// approval was already applied. ErrLateApproval means the hold expired first and
// the caller must re-check availability before choosing ReinstateLateApproval
// or RefundUnfulfillable.
func (b *Booking) Approve(reference string, now time.Time) (bool, error) {
	if err := b.matchReference(reference, "approve payment"); err != nil {
		return false, err
	}
	if b.Settled() {
		return false, nil
	}
	switch b.Status {
	case StatusHold:
		if b.HoldExpired(now) {
			return false, ErrLateApproval
		}
		b.confirm(now, false)
		return true, nil
	case StatusCancelled:
		if b.CancelReason == ReasonHoldExpired {
			return false, ErrLateApproval
		}
	}
	return false, b.anomaly("approve payment", "booking is "+b.describe())
}

// ReinstateLateApproval confirms an expired hold whose dates are still free.
func (b *Booking) ReinstateLateApproval(now time.Time) error {
	if !b.awaitingLateApproval(now) {
		return b.transitionError("reinstate late approval", "")
	}
	b.CancelReason = ""
	b.CancelledBy = ""
	b.confirm(now, true)
	return nil
}

// RefundUnfulfillable settles a late approval whose dates were taken in the
// meantime: the payment is kept on record and returned in full.
func (b *Booking) RefundUnfulfillable(now time.Time) error {
	if !b.awaitingLateApproval(now) {
		return b.transitionError("refund late approval", "")
	}
	b.PaidAt = now.UTC()
	b.Status = StatusRefunded
	b.CancelReason = ReasonSlotReassigned
	b.CancelledBy = ActorSystem
	b.Refund = b.TotalAmount()
	b.touch(now)
	b.Record(BookingRefunded{BookingID: b.ID, Reason: b.CancelReason, Amount: b.Refund, At: b.UpdatedAt})
	return nil
}

// RejectPayment applies a payment rejection. Rejections for holds that are
// already cancelled are no-ops; rejections after an approval are anomalies.
func (b *Booking) RejectPayment(reference string, now time.Time) (bool, error) {
	if err := b.matchReference(reference, "reject payment"); err != nil {
		return false, err
	}
	if b.Settled() {
		return false, b.anomaly("reject payment", "payment already approved")
	}
	switch b.Status {
	case StatusHold:
		b.cancel(ReasonPaymentRejected, ActorSystem, money.Zero(b.TotalAmount().Currency), now)
		return true, nil
	case StatusCancelled:
		return false, nil
	}
	return false, b.transitionError("reject payment", "")
}

// Cancel cancels the booking on behalf of the renter or the host and returns the
// refund owed under policy.
func (b *Booking) Cancel(actor Actor, policy RefundPolicy, now time.Time) (money.Money, error) {
	reason := ReasonRenterCancelled
	switch actor {
	case ActorRenter:
	case ActorHost:
		reason = ReasonHostCancelled
	default:
		return money.Money{}, b.transitionError("cancel", "unknown actor "+string(actor))
	}
	switch b.StatusAt(now) {
	case StatusHold:
		refund := money.Zero(b.TotalAmount().Currency)
		b.cancel(reason, actor, refund, now)
		return refund, nil
	case StatusConfirmed:
		if !now.Before(b.Range.Start) {
			return money.Money{}, b.transitionError("cancel", "stay already started")
		}
		refund := policy.Refund(b.TotalAmount(), now, b.Range.Start, actor)
		b.cancel(reason, actor, refund, now)
		return refund, nil
	}
	return money.Money{}, b.transitionError("cancel", "")
}

// Expire cancels a hold whose TTL elapsed without an approval.
func (b *Booking) Expire(now time.Time) error {
	if !b.HoldExpired(now) {
		return b.transitionError("expire hold", "")
	}
	b.Status = StatusCancelled
	b.CancelReason = ReasonHoldExpired
	b.CancelledBy = ActorSystem
	b.Refund = money.Zero(b.TotalAmount().Currency)
	b.touch(now)
	b.Record(HoldExpired{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

// Complete persists the completed projection of an ended stay.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed || now.Before(b.Range.DayAfterEnd()) {
		return b.transitionError("complete", "")
	}
	b.Status = StatusCompleted
	b.touch(now)
	b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) OpenDispute(reporterID, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrDisputeReasonRequired
	}
	if !b.IsParticipant(reporterID) {
		return ErrNotParticipant
	}
	s := b.StatusAt(now)
	if (s != StatusConfirmed && s != StatusCompleted) || !b.DisputeResolvedAt.IsZero() {
		return b.transitionError("open dispute", "")
	}
	b.Status = StatusDisputed
	b.DisputeReason = reason
	b.DisputedBy = strings.TrimSpace(reporterID)
	b.touch(now)
	b.Record(BookingDisputed{BookingID: b.ID, ReporterID: b.DisputedBy, Reason: reason, At: b.UpdatedAt})
	return nil
}

// ResolveDispute closes a dispute. A refund returns the full amount; a release
// puts the booking back to confirmed, after which it completes normally.
func (b *Booking) ResolveDispute(resolution DisputeResolution, now time.Time) (money.Money, error) {
	if b.Status != StatusDisputed {
		return money.Money{}, b.transitionError("resolve dispute", "")
	}
	refund := money.Zero(b.TotalAmount().Currency)
	switch resolution {
	case ResolutionRefund:
		refund = b.TotalAmount()
		b.Status = StatusRefunded
		b.CancelReason = ReasonDisputeRefunded
		b.Refund = refund
	case ResolutionRelease:
		b.Status = StatusConfirmed
	default:
		return money.Money{}, ErrUnknownResolution
	}
	b.DisputeResolvedAt = now.UTC()
	b.touch(now)
	b.Record(DisputeResolved{BookingID: b.ID, Resolution: resolution, Refund: refund, At: b.UpdatedAt})
	return refund, nil
}

// RecordPaymentAnomaly flags a contradicting payment event for manual review
// without touching the booking state.
func (b *Booking) RecordPaymentAnomaly(outcome, detail string, now time.Time) {
	b.Record(PaymentAnomaly{
		BookingID: b.ID,
		Outcome:   outcome,
		Status:    b.Status,
		Detail:    detail,
		At:        now.UTC(),
	})
}

func (b *Booking) confirm(now time.Time, late bool) {
	b.Status = StatusConfirmed
	b.PaidAt = now.UTC()
	b.touch(now)
	b.Record(BookingConfirmed{
		BookingID: b.ID,
		ListingID: b.ListingID,
		Range:     b.Range,
		Total:     b.TotalAmount(),
		Late:      late,
		At:        b.UpdatedAt,
	})
}

func (b *Booking) cancel(reason CancelReason, actor Actor, refund money.Money, now time.Time) {
	b.Status = StatusCancelled
	b.CancelReason = reason
	b.CancelledBy = actor
	b.Refund = refund
	b.touch(now)
	b.Record(BookingCancelled{BookingID: b.ID, Reason: reason, By: actor, Refund: refund, At: b.UpdatedAt})
}

func (b *Booking) awaitingLateApproval(now time.Time) bool {
	if b.Settled() {
		return false
	}
	if b.HoldExpired(now) {
		return true
	}
	return b.Status == StatusCancelled && b.CancelReason == ReasonHoldExpired
}

// matchReference requires the event to name the attached payment reference.
// An event without a reference cannot settle a booking that has one.
func (b *Booking) matchReference(reference, action string) error {
	if b.PaymentReference == "" {
		return nil
	}
	switch strings.TrimSpace(reference) {
	case b.PaymentReference:
		return nil
	case "":
		return b.transitionError(action, "payment reference missing")
	}
	return b.transitionError(action, "payment reference mismatch")
}

func (b *Booking) describe() string {
	if b.CancelReason != "" {
		return strings.ToLower(string(b.Status)) + " (" + string(b.CancelReason) + ")"
	}
	return strings.ToLower(string(b.Status))
}

func (b *Booking) transitionError(action, detail string) *TransitionError {
	return &TransitionError{BookingID: b.ID, From: b.Status, Action: action, Detail: detail}
}

func (b *Booking) anomaly(action, detail string) *TransitionError {
	err := b.transitionError(action, detail)
	err.Anomaly = true
	return err
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}

package booking

import (
	"errors"
	"fmt"

	"doorly/internal/domain/pricing"
	"doorly/internal/domain/shared/daterange"
)

var (
	ErrNotFound               = errors.New("booking: not found")
	ErrOverlap                = errors.New("booking: dates overlap an existing booking")
	ErrInvalidTransition      = errors.New("booking: invalid state transition")
	ErrStalePaymentEvent      = errors.New("booking: stale payment event")
	ErrLateApproval           = errors.New("booking: approval arrived after the hold expired")
	ErrConcurrentModification = errors.New("booking: concurrent modification")
	ErrNotParticipant         = errors.New("booking: user is not a participant of the booking")
	ErrRenterRequired         = errors.New("booking: renter id required")
	ErrHostRequired           = errors.New("booking: host id required")
	ErrDisputeReasonRequired  = errors.New("booking: dispute reason required")
	ErrUnknownResolution      = errors.New("booking: unknown dispute resolution")
)

type RejectionReason string

const (
	RejectOverlap      RejectionReason = "OVERLAP"
	RejectInvalidRange RejectionReason = "INVALID_RANGE"
	RejectRateMissing  RejectionReason = "RATE_MISSING"
)

// Rejection is returned when a reservation request is refused before any side
// effect happened.
type Rejection struct {
	Reason RejectionReason
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return "booking: reservation rejected: " + string(r.Reason)
	}
	return fmt.Sprintf("booking: reservation rejected: %s: %v", r.Reason, r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

// Reject classifies err into a Rejection when it is one of the known refusal
// causes. Other errors are returned unchanged.
func Reject(err error) error {
	if err == nil {
		return nil
	}
	var existing *Rejection
	if errors.As(err, &existing) {
		return err
	}
	switch {
	case errors.Is(err, ErrOverlap):
		return &Rejection{Reason: RejectOverlap, Err: err}
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrMissingDate),
		errors.Is(err, pricing.ErrInvalidLength),
		errors.Is(err, ErrStartInPast):
		return &Rejection{Reason: RejectInvalidRange, Err: err}
	case errors.Is(err, pricing.ErrRateMissing):
		return &Rejection{Reason: RejectRateMissing, Err: err}
	}
	return err
}

// RejectionReasonOf reports the rejection reason carried by err, if any.
func RejectionReasonOf(err error) (RejectionReason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// TransitionError describes a refused state change. It matches
// ErrInvalidTransition and, for payment events that contradict the recorded
// outcome, ErrStalePaymentEvent as well.
type TransitionError struct {
	BookingID BookingID
	From      Status
	Action    string
	Detail    string
	Anomaly   bool
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("booking %s: cannot %s from %s", e.BookingID, e.Action, e.From)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.Anomaly {
		return []error{ErrInvalidTransition, ErrStalePaymentEvent}
	}
	return []error{ErrInvalidTransition}
}

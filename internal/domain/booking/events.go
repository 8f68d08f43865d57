package booking

import (
	"time"

	"doorly/internal/domain/listings"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/money"
)

type BookingHeld struct {
	BookingID     BookingID
	ListingID     listings.ListingID
	RenterID      string
	HostID        listings.HostID
	Range         daterange.DateRange
	Total         money.Money
	HoldExpiresAt time.Time
	At            time.Time
}

func (e BookingHeld) EventName() string     { return "booking.held" }
func (e BookingHeld) AggregateID() string   { return string(e.BookingID) }
func (e BookingHeld) OccurredAt() time.Time { return e.At }

type PaymentRequested struct {
	BookingID BookingID
	Reference string
	Amount    money.Money
	At        time.Time
}

func (e PaymentRequested) EventName() string     { return "booking.payment_requested" }
func (e PaymentRequested) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID
	ListingID listings.ListingID
	Range     daterange.DateRange
	Total     money.Money
	Late      bool
	At        time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	Reason    CancelReason
	By        Actor
	Refund    money.Money
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type HoldExpired struct {
	BookingID BookingID
	ListingID listings.ListingID
	At        time.Time
}

func (e HoldExpired) EventName() string     { return "booking.hold_expired" }
func (e HoldExpired) AggregateID() string   { return string(e.BookingID) }
func (e HoldExpired) OccurredAt() time.Time { return e.At }

type BookingRefunded struct {
	BookingID BookingID
	Reason    CancelReason
	Amount    money.Money
	At        time.Time
}

func (e BookingRefunded) EventName() string     { return "booking.refunded" }
func (e BookingRefunded) AggregateID() string   { return string(e.BookingID) }
func (e BookingRefunded) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	ListingID listings.ListingID
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingDisputed struct {
	BookingID  BookingID
	ReporterID string
	Reason     string
	At         time.Time
}

func (e BookingDisputed) EventName() string     { return "booking.disputed" }
func (e BookingDisputed) AggregateID() string   { return string(e.BookingID) }
func (e BookingDisputed) OccurredAt() time.Time { return e.At }

type DisputeResolved struct {
	BookingID  BookingID
	Resolution DisputeResolution
	Refund     money.Money
	At         time.Time
}

func (e DisputeResolved) EventName() string     { return "booking.dispute_resolved" }
func (e DisputeResolved) AggregateID() string   { return string(e.BookingID) }
func (e DisputeResolved) OccurredAt() time.Time { return e.At }

type PaymentAnomaly struct {
	BookingID BookingID
	Outcome   string
	Status    Status
	Detail    string
	At        time.Time
}

func (e PaymentAnomaly) EventName() string     { return "booking.payment_anomaly" }
func (e PaymentAnomaly) AggregateID() string   { return string(e.BookingID) }
func (e PaymentAnomaly) OccurredAt() time.Time { return e.At }

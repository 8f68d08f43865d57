package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	availabilityapp "doorly/internal/app/handlers/availability"
	bookingapp "doorly/internal/app/handlers/booking"
	listingapp "doorly/internal/app/handlers/listings"
	paymentsapp "doorly/internal/app/handlers/payments"
	reviewsapp "doorly/internal/app/handlers/reviews"
	"doorly/internal/app/middleware"
	"doorly/internal/app/outbox"
	"doorly/internal/app/policies"
	"doorly/internal/app/queries"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
)

var ErrMissingDependency = errors.New("engine: missing dependency")

// Deps are the ports the reservation engine runs on. Storage-specific pieces
// (unit of work, outbox, conflict predicate) come from the selected driver.
type Deps struct {
	UoWFactory   uow.UoWFactory
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Idempotency  middleware.IdempotencyStore
	Locker       policies.ListingLocker
	Inbox        policies.Inbox
	Pricing      policies.PricingPort
	Payments     policies.PaymentsPort
	Policy       domainavailability.Policy
	RefundPolicy domainbooking.RefundPolicy
	HoldTTL      time.Duration
	IsConflict   func(error) bool
	Retries      int
	RetryBackoff time.Duration
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       *slog.Logger
}

// Engine exposes the command and query buses plus the sweeps driven by the
// scheduler. Sweeps bypass the command chain because each booking gets its
// own unit of work.
type Engine struct {
	Commands commands.Bus
	Queries  queries.Bus
	Sweeps   *bookingapp.SweepHandler
}

func New(d Deps) (*Engine, error) {
	switch {
	case d.UoWFactory == nil:
		return nil, fmt.Errorf("%w: uow factory", ErrMissingDependency)
	case d.Outbox == nil:
		return nil, fmt.Errorf("%w: outbox", ErrMissingDependency)
	case d.Idempotency == nil:
		return nil, fmt.Errorf("%w: idempotency store", ErrMissingDependency)
	case d.Locker == nil:
		return nil, fmt.Errorf("%w: listing locker", ErrMissingDependency)
	case d.Pricing == nil:
		return nil, fmt.Errorf("%w: pricing", ErrMissingDependency)
	case d.Payments == nil:
		return nil, fmt.Errorf("%w: payments", ErrMissingDependency)
	}
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.HoldTTL <= 0 {
		d.HoldTTL = domainbooking.DefaultHoldTTL
	}
	if d.IsConflict == nil {
		d.IsConflict = func(err error) bool { return errors.Is(err, domainbooking.ErrConcurrentModification) }
	}
	if d.Retries <= 0 {
		d.Retries = 3
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = 20 * time.Millisecond
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.RequestReservationCommand{}.Key(), &bookingapp.RequestReservationHandler{
		UoWFactory:  d.UoWFactory,
		Pricing:     d.Pricing,
		Payments:    d.Payments,
		Outbox:      d.Outbox,
		Encoder:     d.Encoder,
		Policy:      d.Policy,
		HoldTTL:     d.HoldTTL,
		Clock:       d.Clock,
		IDGenerator: d.IDGenerator,
		Logger:      d.Logger,
	})
	commands.RegisterHandler(commandBus, paymentsapp.ApplyPaymentEventCommand{}.Key(), &paymentsapp.ApplyPaymentEventHandler{
		UoWFactory: d.UoWFactory,
		Payments:   d.Payments,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Policy:     d.Policy,
		Clock:      d.Clock,
		Logger:     d.Logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory:   d.UoWFactory,
		Payments:     d.Payments,
		Outbox:       d.Outbox,
		Encoder:      d.Encoder,
		RefundPolicy: d.RefundPolicy,
		Clock:        d.Clock,
		Logger:       d.Logger,
	})
	disputes := &bookingapp.DisputeHandler{
		UoWFactory: d.UoWFactory,
		Payments:   d.Payments,
		Outbox:     d.Outbox,
		Encoder:    d.Encoder,
		Clock:      d.Clock,
		Logger:     d.Logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.OpenDisputeCommand{}.Key(),
		commands.HandlerFunc[bookingapp.OpenDisputeCommand, *bookingapp.DisputeResult](disputes.Open))
	commands.RegisterHandler(commandBus, bookingapp.ResolveDisputeCommand{}.Key(),
		commands.HandlerFunc[bookingapp.ResolveDisputeCommand, *bookingapp.DisputeResult](disputes.Resolve))
	commands.RegisterHandler(commandBus, reviewsapp.SubmitReviewCommand{}.Key(), &reviewsapp.SubmitReviewHandler{
		UoWFactory:  d.UoWFactory,
		Outbox:      d.Outbox,
		Encoder:     d.Encoder,
		Clock:       d.Clock,
		IDGenerator: d.IDGenerator,
		Logger:      d.Logger,
	})

	validator := middleware.NewStructValidator()
	chain := []middleware.CommandMiddleware{
		middleware.Idempotency(d.Idempotency, nil),
		middleware.Validation(validator),
		middleware.Authorization(middleware.RequireActor{}),
	}
	if d.Inbox != nil {
		// The inbox claim must outlive conflict retries and commit failures.
		chain = append(chain, middleware.Deduplicate(d.Inbox, d.Logger))
	}
	chain = append(chain,
		middleware.ListingLock(d.Locker),
		middleware.RetryOnConflict(d.Retries, d.RetryBackoff, d.IsConflict),
		middleware.OutboxFlush(d.Outbox),
		middleware.Transaction(d.UoWFactory, nil),
	)
	chained := middleware.ChainCommands(commandBus, chain...)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.GetAvailabilityQuery{}.Key(), &availabilityapp.GetAvailabilityHandler{
		UoWFactory: d.UoWFactory,
		Policy:     d.Policy,
		Clock:      d.Clock,
	})
	queries.RegisterHandler(queryBus, listingapp.GetQuoteQuery{}.Key(), &listingapp.GetQuoteHandler{
		UoWFactory: d.UoWFactory,
		Pricing:    d.Pricing,
		Logger:     d.Logger,
	})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{
		UoWFactory: d.UoWFactory,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{
		UoWFactory: d.UoWFactory,
		Clock:      d.Clock,
		Logger:     d.Logger,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetReviewWindowQuery{}.Key(), &bookingapp.GetReviewWindowHandler{
		UoWFactory: d.UoWFactory,
		Clock:      d.Clock,
	})
	lists := &bookingapp.ListBookingsHandler{UoWFactory: d.UoWFactory, Clock: d.Clock, Logger: d.Logger}
	queries.RegisterHandler(queryBus, bookingapp.ListHostBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListHostBookingsQuery, dto.BookingCollection](lists.ForHost))
	queries.RegisterHandler(queryBus, bookingapp.ListRenterBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListRenterBookingsQuery, dto.BookingCollection](lists.ForRenter))
	queries.RegisterHandler(queryBus, reviewsapp.ListListingReviewsQuery{}.Key(), &reviewsapp.ListListingReviewsHandler{
		UoWFactory: d.UoWFactory,
		Logger:     d.Logger,
	})

	chainedQueries := middleware.ChainQueries(
		queryBus,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(middleware.RequireActor{}),
	)

	return &Engine{
		Commands: chained,
		Queries:  chainedQueries,
		Sweeps: &bookingapp.SweepHandler{
			UoWFactory: d.UoWFactory,
			Outbox:     d.Outbox,
			Encoder:    d.Encoder,
			Clock:      d.Clock,
			Logger:     d.Logger,
		},
	}, nil
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doorly/internal/app/commands"
	"doorly/internal/app/dto"
	handlersupport "doorly/internal/app/handlers/support"
	"doorly/internal/app/middleware"
	"doorly/internal/app/outbox"
	"doorly/internal/app/policies"
	"doorly/internal/app/uow"
	domainavailability "doorly/internal/domain/availability"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainrange "doorly/internal/domain/shared/daterange"
)

const requestReservationKey = "booking.reserve"

var ErrListingNotBookable = errors.New("booking: listing is not accepting reservations")

// RequestReservationCommand asks for a hold on a listing. The client never
// supplies an amount; the total comes from the pricing port.
type RequestReservationCommand struct {
	ListingID       string `validate:"required"`
	RenterID        string `validate:"required"`
	StartDate       string `validate:"required"`
	EndDate         string `validate:"required"`
	IdempotencyKeyV string
}

func (c RequestReservationCommand) Key() string { return requestReservationKey }

func (c RequestReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestReservationCommand) ResultPrototype() any { return &ReservationResult{} }

func (c RequestReservationCommand) ListingKey() domainlistings.ListingID {
	return domainlistings.ListingID(c.ListingID)
}

func (c RequestReservationCommand) ActorID() string { return c.RenterID }

type ReservationResult struct {
	BookingID        string       `json:"booking_id"`
	Status           string       `json:"status"`
	TotalAmount      dto.MoneyDTO `json:"total_amount"`
	PaymentReference string       `json:"payment_reference"`
	CheckoutURL      string       `json:"checkout_url,omitempty"`
	HoldExpiresAt    time.Time    `json:"hold_expires_at"`
}

type RequestReservationHandler struct {
	UoWFactory  uow.UoWFactory
	Pricing     policies.PricingPort
	Payments    policies.PaymentsPort
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Policy      domainavailability.Policy
	HoldTTL     time.Duration
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

func (h *RequestReservationHandler) Handle(ctx context.Context, cmd RequestReservationCommand) (*ReservationResult, error) {
	scope, err := handlersupport.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	ctx, unit := scope.Ctx, scope.Unit
	now := handlersupport.Now(h.Clock)

	dr, err := domainrange.Parse(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, domainbooking.Reject(err)
	}
	if err := domainbooking.ValidateStay(dr, now); err != nil {
		return nil, domainbooking.Reject(err)
	}

	listingID := domainlistings.ListingID(cmd.ListingID)
	if err := unit.LockListing(ctx, listingID); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Bookable() {
		return nil, ErrListingNotBookable
	}

	price, err := h.Pricing.Quote(ctx, listing, dr)
	if err != nil {
		if errors.Is(err, domainpricing.ErrRateMissing) {
			h.logger().Error("listing rate table misconfigured", "listing_id", listing.ID, "error", err)
		}
		return nil, domainbooking.Reject(err)
	}

	existing, err := unit.Bookings().ListByListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if _, err := handlersupport.ExpireStaleHolds(ctx, unit, h.Outbox, h.Encoder, existing, "", now); err != nil {
		return nil, err
	}
	index := domainavailability.Build(listing.ID, existing, h.Policy, now)
	if err := index.Check(dr); err != nil {
		h.logger().Info("reservation rejected", "listing_id", listing.ID, "range", dr.String(), "error", err)
		return nil, domainbooking.Reject(err)
	}

	hold, err := domainbooking.NewHold(domainbooking.HoldParams{
		ID:        domainbooking.BookingID(middleware.StableID(ctx, "booking", h.newID)),
		ListingID: listing.ID,
		RenterID:  cmd.RenterID,
		HostID:    listing.Host,
		Range:     dr,
		Price:     price,
		TTL:       h.HoldTTL,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, hold); err != nil {
		return nil, domainbooking.Reject(err)
	}

	intent, err := h.Payments.CreateIntent(ctx, string(hold.ID), hold.TotalAmount(), policies.IntentKey(string(hold.ID)))
	if err != nil {
		h.logger().Error("payment intent failed", "booking_id", hold.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", policies.ErrPaymentGateway, err)
	}
	if err := hold.AttachPaymentReference(intent.Reference, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, hold); err != nil {
		return nil, err
	}

	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, hold); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, domainbooking.Reject(err)
	}

	h.logger().Info("hold created", "booking_id", hold.ID, "listing_id", listing.ID, "range", dr.String(), "total", hold.TotalAmount().Amount)
	return &ReservationResult{
		BookingID:        string(hold.ID),
		Status:           string(hold.Status),
		TotalAmount:      dto.MapMoney(hold.TotalAmount()),
		PaymentReference: hold.PaymentReference,
		CheckoutURL:      intent.CheckoutURL,
		HoldExpiresAt:    hold.HoldExpiresAt,
	}, nil
}

func (h *RequestReservationHandler) newID() string {
	if h.IDGenerator != nil {
		return h.IDGenerator()
	}
	return uuid.NewString()
}

func (h *RequestReservationHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[RequestReservationCommand, *ReservationResult] = (*RequestReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestReservationCommand)(nil)
var _ middleware.ListingScoped = (*RequestReservationCommand)(nil)

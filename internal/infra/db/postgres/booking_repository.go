package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	"doorly/internal/domain/shared/daterange"
	"doorly/internal/domain/shared/money"
)

const bookingColumns = `id, listing_id, renter_id, host_id, start_date, end_date, price, status,
	payment_reference, hold_expires_at, paid_at, cancel_reason, cancelled_by, refund_amount, refund_currency,
	dispute_reason, disputed_by, dispute_resolved_at, created_at, updated_at, version`

type BookingRepository struct {
	q querier
}

func NewBookingRepository(q querier) *BookingRepository {
	return &BookingRepository{q: q}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
}

func (r *BookingRepository) ByPaymentReference(ctx context.Context, reference string) (*domainbooking.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domainbooking.ErrNotFound
	}
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference = $1`, reference)
}

// Save inserts new bookings and updates existing ones under optimistic
// versioning. Overlaps are rejected by the exclusion constraint.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	price, err := json.Marshal(toPriceRecord(b.Price))
	if err != nil {
		return err
	}
	var ref *string
	if b.PaymentReference != "" {
		ref = &b.PaymentReference
	}
	next := b.Version + 1
	args := []any{
		string(b.ID), string(b.ListingID), b.RenterID, string(b.HostID), b.Range.Start, b.Range.End, price,
		string(b.Status), ref, nullTime(b.HoldExpiresAt), nullTime(b.PaidAt), string(b.CancelReason),
		string(b.CancelledBy), b.Refund.Amount, b.Refund.Currency, b.DisputeReason, b.DisputedBy,
		nullTime(b.DisputeResolvedAt), b.CreatedAt, b.UpdatedAt, next,
	}
	var sql string
	if b.Version == 0 {
		sql = `INSERT INTO bookings (` + bookingColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
			ON CONFLICT (id) DO NOTHING`
	} else {
		sql = `UPDATE bookings SET listing_id = $2, renter_id = $3, host_id = $4, start_date = $5, end_date = $6,
			price = $7, status = $8, payment_reference = $9, hold_expires_at = $10, paid_at = $11,
			cancel_reason = $12, cancelled_by = $13, refund_amount = $14, refund_currency = $15,
			dispute_reason = $16, disputed_by = $17, dispute_resolved_at = $18, created_at = $19,
			updated_at = $20, version = $21
			WHERE id = $1 AND version = $22`
		args = append(args, b.Version)
	}
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err, "save booking")
	}
	if tag.RowsAffected() != 1 {
		return domainbooking.ErrConcurrentModification
	}
	b.Version = next
	return nil
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE listing_id = $1 ORDER BY created_at, id`, string(listingID))
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE renter_id = $1 ORDER BY created_at, id`, renterID)
}

func (r *BookingRepository) ListByHost(ctx context.Context, hostID domainlistings.HostID) ([]*domainbooking.Booking, error) {
	return r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE host_id = $1 ORDER BY created_at, id`, string(hostID))
}

func (r *BookingRepository) ListByStatus(ctx context.Context, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.many(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = $1 ORDER BY created_at, id`, string(status))
}

func (r *BookingRepository) one(ctx context.Context, sql string, args ...any) (*domainbooking.Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainbooking.ErrNotFound
	}
	return b, err
}

func (r *BookingRepository) many(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var (
		b                               domainbooking.Booking
		id, listingID, hostID, status   string
		cancelReason, cancelledBy       string
		start, end                      time.Time
		price                           []byte
		ref                             *string
		holdExpires, paidAt, resolvedAt *time.Time
		refundAmount                    int64
		refundCurrency                  string
	)
	err := row.Scan(
		&id, &listingID, &b.RenterID, &hostID, &start, &end, &price, &status,
		&ref, &holdExpires, &paidAt, &cancelReason, &cancelledBy, &refundAmount, &refundCurrency,
		&b.DisputeReason, &b.DisputedBy, &resolvedAt, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	var rec priceRecord
	if err := json.Unmarshal(price, &rec); err != nil {
		return nil, err
	}
	b.ID = domainbooking.BookingID(id)
	b.ListingID = domainlistings.ListingID(listingID)
	b.HostID = domainlistings.HostID(hostID)
	b.Range = daterange.DateRange{Start: daterange.Day(start), End: daterange.Day(end)}
	b.Price = rec.toBreakdown()
	b.Status = domainbooking.Status(status)
	if ref != nil {
		b.PaymentReference = *ref
	}
	b.HoldExpiresAt = fromNullTime(holdExpires)
	b.PaidAt = fromNullTime(paidAt)
	b.CancelReason = domainbooking.CancelReason(cancelReason)
	b.CancelledBy = domainbooking.Actor(cancelledBy)
	b.Refund = money.Money{Amount: refundAmount, Currency: refundCurrency}
	b.DisputeResolvedAt = fromNullTime(resolvedAt)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

type moneyRecord struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type lineRecord struct {
	Name   string      `json:"name"`
	Amount moneyRecord `json:"amount"`
}

type priceRecord struct {
	Days      int          `json:"days"`
	Tier      string       `json:"tier"`
	Label     string       `json:"label"`
	Subtotal  moneyRecord  `json:"subtotal"`
	Fees      []lineRecord `json:"fees,omitempty"`
	Discounts []lineRecord `json:"discounts,omitempty"`
	Total     moneyRecord  `json:"total"`
}

func toPriceRecord(p domainpricing.PriceBreakdown) priceRecord {
	rec := priceRecord{
		Days:     p.Days,
		Tier:     string(p.Tier),
		Label:    p.Label,
		Subtotal: moneyRecord{Amount: p.Subtotal.Amount, Currency: p.Subtotal.Currency},
		Total:    moneyRecord{Amount: p.Total.Amount, Currency: p.Total.Currency},
	}
	for _, fee := range p.Fees {
		rec.Fees = append(rec.Fees, lineRecord{Name: fee.Name, Amount: moneyRecord{Amount: fee.Amount.Amount, Currency: fee.Amount.Currency}})
	}
	for _, discount := range p.Discounts {
		rec.Discounts = append(rec.Discounts, lineRecord{Name: discount.Name, Amount: moneyRecord{Amount: discount.Amount.Amount, Currency: discount.Amount.Currency}})
	}
	return rec
}

func (r priceRecord) toBreakdown() domainpricing.PriceBreakdown {
	out := domainpricing.PriceBreakdown{
		Days:     r.Days,
		Tier:     domainpricing.Tier(r.Tier),
		Label:    r.Label,
		Subtotal: money.Money{Amount: r.Subtotal.Amount, Currency: r.Subtotal.Currency},
		Total:    money.Money{Amount: r.Total.Amount, Currency: r.Total.Currency},
	}
	for _, fee := range r.Fees {
		out.Fees = append(out.Fees, domainpricing.Fee{Name: fee.Name, Amount: money.Money{Amount: fee.Amount.Amount, Currency: fee.Amount.Currency}})
	}
	for _, discount := range r.Discounts {
		out.Discounts = append(out.Discounts, domainpricing.Discount{Name: discount.Name, Amount: money.Money{Amount: discount.Amount.Amount, Currency: discount.Amount.Currency}})
	}
	return out
}

var _ domainbooking.Repository = (*BookingRepository)(nil)

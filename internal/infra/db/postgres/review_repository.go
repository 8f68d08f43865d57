package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

type ReviewRepository struct {
	q querier
}

func NewReviewRepository(q querier) *ReviewRepository {
	return &ReviewRepository{q: q}
}

const reviewColumns = `id, booking_id, listing_id, author_id, rating, comment, created_at`

func (r *ReviewRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainreviews.Review, error) {
	rv, err := scanReview(r.q.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE booking_id = $1`, string(bookingID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainreviews.ErrNotFound
	}
	return rv, err
}

// ListByListing returns newest first. A zero limit returns everything.
func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.q.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE listing_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, string(listingID), lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainreviews.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	_, err := r.q.Exec(ctx, `INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(review.ID), string(review.BookingID), string(review.ListingID), review.AuthorID,
		review.Rating, review.Comment, review.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return domainreviews.ErrAlreadyReviewed
	}
	return mapErr(err, "save review")
}

func scanReview(row pgx.Row) (*domainreviews.Review, error) {
	var (
		rv                    domainreviews.Review
		id, bookingID, listID string
	)
	if err := row.Scan(&id, &bookingID, &listID, &rv.AuthorID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
		return nil, err
	}
	rv.ID = domainreviews.ReviewID(id)
	rv.BookingID = domainbooking.BookingID(bookingID)
	rv.ListingID = domainlistings.ListingID(listID)
	rv.CreatedAt = rv.CreatedAt.UTC()
	return &rv, nil
}

var _ domainreviews.Repository = (*ReviewRepository)(nil)

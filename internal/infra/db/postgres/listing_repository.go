package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
)

type ListingRepository struct {
	q querier
}

func NewListingRepository(q querier) *ListingRepository {
	return &ListingRepository{q: q}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var (
		l                domainlistings.Listing
		lid, host, state string
		weekly, monthly  *int64
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, host_id, title, rate_daily, rate_weekly, rate_monthly, currency, state,
		       rating, reviews_count, created_at, updated_at, version
		FROM listings WHERE id = $1`, string(id)).Scan(
		&lid, &host, &l.Title, &l.Rates.Daily, &weekly, &monthly, &l.Rates.Currency, &state,
		&l.Rating, &l.ReviewsCount, &l.CreatedAt, &l.UpdatedAt, &l.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainlistings.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ID = domainlistings.ListingID(lid)
	l.Host = domainlistings.HostID(host)
	l.State = domainlistings.ListingState(state)
	l.Rates.Weekly = weekly
	l.Rates.Monthly = monthly
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	next := l.Version + 1
	var (
		tag pgconn.CommandTag
		err error
	)
	if l.Version == 0 {
		tag, err = r.q.Exec(ctx, `
			INSERT INTO listings (id, host_id, title, rate_daily, rate_weekly, rate_monthly, currency, state,
			                      rating, reviews_count, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING`,
			string(l.ID), string(l.Host), l.Title, l.Rates.Daily, l.Rates.Weekly, l.Rates.Monthly, l.Rates.Currency,
			string(l.State), l.Rating, l.ReviewsCount, l.CreatedAt, l.UpdatedAt, next)
	} else {
		tag, err = r.q.Exec(ctx, `
			UPDATE listings SET host_id = $2, title = $3, rate_daily = $4, rate_weekly = $5, rate_monthly = $6,
			       currency = $7, state = $8, rating = $9, reviews_count = $10, updated_at = $11, version = $12
			WHERE id = $1 AND version = $13`,
			string(l.ID), string(l.Host), l.Title, l.Rates.Daily, l.Rates.Weekly, l.Rates.Monthly, l.Rates.Currency,
			string(l.State), l.Rating, l.ReviewsCount, l.UpdatedAt, next, l.Version)
	}
	if err != nil {
		return mapErr(err, "save listing")
	}
	if tag.RowsAffected() != 1 {
		return domainbooking.ErrConcurrentModification
	}
	l.Version = next
	return nil
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

type Factory struct {
	Pool *pgxpool.Pool
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx}, nil
}

type Unit struct {
	tx pgx.Tx
}

func (u *Unit) Listings() domainlistings.ListingRepository { return &ListingRepository{q: u.tx} }

func (u *Unit) Bookings() domainbooking.Repository { return &BookingRepository{q: u.tx} }

func (u *Unit) Reviews() domainreviews.Repository { return &ReviewRepository{q: u.tx} }

// LockListing takes the listing row lock until the transaction ends, so
// reservation attempts on one listing queue while other listings proceed.
func (u *Unit) LockListing(ctx context.Context, id domainlistings.ListingID) error {
	var locked string
	err := u.tx.QueryRow(ctx, `SELECT id FROM listings WHERE id = $1 FOR UPDATE`, string(id)).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domainlistings.ErrNotFound
	}
	return mapErr(err, "lock listing")
}

func (u *Unit) Commit(ctx context.Context) error {
	return mapErr(u.tx.Commit(ctx), "commit")
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var _ uow.UoWFactory = Factory{}

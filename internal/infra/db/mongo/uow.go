package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"doorly/internal/app/uow"
	domainbooking "doorly/internal/domain/booking"
	domainlistings "doorly/internal/domain/listings"
	domainreviews "doorly/internal/domain/reviews"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction with snapshot reads, so two
// writers touching the same listing lock document conflict.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:       f.DB,
		session:  session,
		readOnly: opts.ReadOnly,
		listings: NewListingRepository(f.DB),
		bookings: NewBookingRepository(f.DB),
		reviews:  NewReviewRepository(f.DB),
	}, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool

	listings *ListingRepository
	bookings *BookingRepository
	reviews  *ReviewRepository
}

func (u *Unit) Listings() domainlistings.ListingRepository { return u.listings }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Reviews() domainreviews.Repository { return u.reviews }

// LockListing bumps the listing's lock document inside the transaction. A
// concurrent transaction doing the same fails with a write conflict, which
// surfaces as ErrConcurrentModification and is retried by the command chain.
func (u *Unit) LockListing(ctx context.Context, id domainlistings.ListingID) error {
	if u.readOnly {
		return nil
	}
	_, err := u.db.Collection(listingLocksCollection).UpdateOne(
		mongo.NewSessionContext(ctx, u.session),
		bson.M{"_id": string(id)},
		bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"locked_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return mapWriteErr(err, "listing lock "+string(id))
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return u.session.AbortTransaction(ctx)
	}
	return mapWriteErr(u.session.CommitTransaction(ctx), "commit")
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}

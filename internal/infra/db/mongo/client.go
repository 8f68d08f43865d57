package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	listingsCollection     = "listings"
	bookingsCollection     = "bookings"
	reviewsCollection      = "reviews"
	listingLocksCollection = "listing_locks"
	idempotencyCollection  = "idempotency"

	namespaceExistsCode = 48
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. Transactions
// cannot create collections implicitly, so every collection is created here.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for _, name := range []string{listingsCollection, bookingsCollection, reviewsCollection, listingLocksCollection} {
		if err := c.DB.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
			return err
		}
	}
	bookingIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "renter_id", Value: 1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{
			Keys:    bson.D{{Key: "payment_reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"payment_reference": bson.M{"$gt": ""}}),
		},
	}
	if _, err := c.DB.Collection(bookingsCollection).Indexes().CreateMany(ctx, bookingIdx); err != nil {
		return err
	}
	reviewIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := c.DB.Collection(reviewsCollection).Indexes().CreateMany(ctx, reviewIdx)
	return err
}

func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == namespaceExistsCode
}

package policies

import (
	"context"
	"errors"

	domainlistings "doorly/internal/domain/listings"
)

var ErrLockTimeout = errors.New("locks: listing lock not acquired in time")

// ListingLocker serializes calendar writes per listing. Different listings
// never contend.
type ListingLocker interface {
	Lock(ctx context.Context, id domainlistings.ListingID) (unlock func(), err error)
}

// Inbox deduplicates externally delivered events by id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

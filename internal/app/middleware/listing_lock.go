package middleware

import (
	"context"
	"errors"
	"time"

	"doorly/internal/app/commands"
	"doorly/internal/app/policies"
	domainlistings "doorly/internal/domain/listings"
)

// ListingScoped is implemented by commands that change a listing's calendar.
type ListingScoped interface {
	commands.Command
	ListingKey() domainlistings.ListingID
}

// ListingLock holds the listing's lock around the rest of the chain, so the
// availability check and the insert of a hold happen as one step per listing.
func ListingLock(locker policies.ListingLocker) CommandMiddleware {
	if locker == nil {
		panic("middleware: listing locker required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(ListingScoped)
			if !ok || scoped.ListingKey() == "" {
				return nextFn(ctx, cmd)
			}
			unlock, err := locker.Lock(ctx, scoped.ListingKey())
			if err != nil {
				return nil, err
			}
			defer unlock()
			return nextFn(ctx, cmd)
		})
	}
}

// RetryOnConflict re-runs the rest of the chain when isConflict reports a
// transient write conflict. Attempts share the ids handed out by StableID.
func RetryOnConflict(attempts int, backoff time.Duration, isConflict func(error) bool) CommandMiddleware {
	if attempts < 1 {
		attempts = 1
	}
	if isConflict == nil {
		panic("middleware: conflict predicate required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx = withStableIDs(ctx)
			var lastErr error
			for i := 0; i < attempts; i++ {
				res, err := nextFn(ctx, cmd)
				if err == nil || !isConflict(err) {
					return res, err
				}
				lastErr = err
				select {
				case <-ctx.Done():
					return nil, errors.Join(lastErr, ctx.Err())
				case <-time.After(backoff * time.Duration(i+1)):
				}
			}
			return nil, lastErr
		})
	}
}

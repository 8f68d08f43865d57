package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"doorly/internal/app/policies"
	domainlistings "doorly/internal/domain/listings"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a ListingLocker shared by every instance talking to the same
// redis. The lease expires on its own if the holder dies.
type Locker struct {
	rdb   *redis.Client
	lease time.Duration
	wait  time.Duration
	retry time.Duration
}

func NewLocker(rdb *redis.Client, wait time.Duration) *Locker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{rdb: rdb, lease: TTLListingLock, wait: wait, retry: 25 * time.Millisecond}
}

func (l *Locker) Lock(ctx context.Context, id domainlistings.ListingID) (func(), error) {
	key := fmt.Sprintf(KeyListingLock, id)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, policies.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}

var _ policies.ListingLocker = (*Locker)(nil)

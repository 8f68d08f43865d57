package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"doorly/internal/app/policies"
)

// Inbox deduplicates delivered events per consumer with SET NX.
type Inbox struct {
	rdb      *redis.Client
	consumer string
}

func NewInbox(rdb *redis.Client, consumer string) *Inbox {
	return &Inbox{rdb: rdb, consumer: consumer}
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	fresh, err := i.rdb.SetNX(ctx, i.key(eventID), "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	return i.rdb.Del(ctx, i.key(eventID)).Err()
}

func (i *Inbox) key(eventID string) string {
	return fmt.Sprintf(KeyDedup, i.consumer, eventID)
}

var _ policies.Inbox = (*Inbox)(nil)

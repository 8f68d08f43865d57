package postgres

import (
	"context"
	"time"

	"doorly/internal/app/policies"
)

// Inbox records processed external event ids per consumer in the inbox table.
type Inbox struct {
	q        querier
	consumer string
	now      func() time.Time
}

func NewInbox(q querier, consumer string) *Inbox {
	return &Inbox{q: q, consumer: consumer, now: time.Now}
}

// Seen claims eventID and reports whether it was already claimed.
func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	tag, err := i.q.Exec(ctx, `
		INSERT INTO inbox (consumer, event_id, received_at) VALUES ($1, $2, $3)
		ON CONFLICT (consumer, event_id) DO NOTHING`,
		i.consumer, eventID, i.now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}

// Forget releases a claim so a failed event can be delivered again.
func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.q.Exec(ctx, `DELETE FROM inbox WHERE consumer = $1 AND event_id = $2`, i.consumer, eventID)
	return err
}

var _ policies.Inbox = (*Inbox)(nil)

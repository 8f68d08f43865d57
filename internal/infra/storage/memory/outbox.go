package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "doorly/internal/app/outbox"
	"doorly/internal/app/uow"
	infraoutbox "doorly/internal/infra/outbox"
)

type outboxEntry struct {
	msg       infraoutbox.Message
	state     string
	nextRetry time.Time
	lastError string
}

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// Outbox keeps event records until the outbox worker publishes them. Records
// added inside a memory unit of work only become visible when it commits.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// stager is satisfied by *Unit and by types embedding it.
type stager interface {
	stage(appoutbox.EventRecord) error
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mem, ok := unit.(stager); ok {
			return mem.stage(record)
		}
	}
	o.append(record)
	return nil
}

// Flush is a no-op: delivery is left to the worker.
func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{
			msg: infraoutbox.Message{
				ID:         rec.ID,
				Name:       rec.Name,
				Payload:    rec.Payload,
				OccurredAt: rec.OccurredAt,
				Aggregate:  rec.Aggregate,
				Headers:    rec.Headers,
			},
			state:     stateNew,
			nextRetry: now,
		})
	}
}

// Records returns every committed record in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, appoutbox.EventRecord{
			ID:         e.msg.ID,
			Name:       e.msg.Name,
			Payload:    e.msg.Payload,
			OccurredAt: e.msg.OccurredAt,
			Aggregate:  e.msg.Aggregate,
			Headers:    e.msg.Headers,
		})
	}
	return out
}

// Names lists committed event names in order.
func (o *Outbox) Names() []string {
	records := o.Records()
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return names
}

func (o *Outbox) Claim(_ context.Context, _ string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, e := range o.entries {
		if (e.state == stateNew || e.state == stateFailed) && !e.nextRetry.After(now) {
			e.state = stateClaimed
			msg := e.msg
			return &msg, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.state = stateSent
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.state = stateFailed
		e.nextRetry = next
		e.lastError = errMsg
		e.msg.Attempts++
	}
	return nil
}

// Pending counts records not yet published.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if e.state != stateSent {
			n++
		}
	}
	return n
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, e := range o.entries {
		if e.msg.ID == id {
			return e
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)

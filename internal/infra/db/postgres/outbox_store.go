package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "doorly/internal/app/outbox"
	"doorly/internal/app/uow"
	infraoutbox "doorly/internal/infra/outbox"
)

const (
	outboxNew     = "NEW"
	outboxClaimed = "CLAIMED"
	outboxSent    = "SENT"
	outboxFailed  = "FAILED"
)

// OutboxStore writes records through the transaction of the unit of work in
// ctx, so events commit together with the aggregates that raised them.
type OutboxStore struct {
	pool *pgxpool.Pool
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.querier(ctx).Exec(ctx, `
		INSERT INTO outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, headers, outboxNew, now)
	return err
}

// Flush is a no-op: the worker polls the table.
func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	var (
		msg     infraoutbox.Message
		headers []byte
	)
	err := s.pool.QueryRow(ctx, `
		UPDATE outbox SET state = $1, claimed_by = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM outbox
			WHERE state IN ($3, $4) AND next_attempt_at <= now()
			ORDER BY occurred_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`,
		outboxClaimed, workerID, outboxNew, outboxFailed,
	).Scan(&msg.ID, &msg.Name, &msg.Payload, &msg.OccurredAt, &msg.Aggregate, &headers, &msg.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(headers, &msg.Headers); err != nil {
		return nil, err
	}
	msg.OccurredAt = msg.OccurredAt.UTC()
	return &msg, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state = $2, sent_at = now() WHERE id = $1`, id, outboxSent)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
		WHERE id = $1`, id, outboxFailed, next.UTC(), errMsg)
	return err
}

func (s *OutboxStore) querier(ctx context.Context) querier {
	if unit, ok := uow.FromContext(ctx); ok {
		if pgUnit, ok := unit.(*Unit); ok {
			return pgUnit.tx
		}
	}
	return s.pool
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)

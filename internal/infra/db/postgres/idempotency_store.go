package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doorly/internal/app/middleware"
)

type IdempotencyStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewIdempotencyStore keeps replayable results for ttl. Expired rows are
// ignored on read and overwritten on the next save.
func NewIdempotencyStore(pool *pgxpool.Pool, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{pool: pool, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	cutoff := time.Now().UTC().Add(-s.ttl)
	err := s.pool.QueryRow(ctx, `SELECT fingerprint, payload, occurred_at FROM idempotency WHERE key = $1 AND created_at > $2`,
		key, cutoff).Scan(&rec.Fingerprint, &rec.Payload, &rec.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	rec.OccurredAt = rec.OccurredAt.UTC()
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency (key, fingerprint, payload, occurred_at, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET fingerprint = EXCLUDED.fingerprint, payload = EXCLUDED.payload,
		       occurred_at = EXCLUDED.occurred_at, created_at = EXCLUDED.created_at`,
		rec.Key, rec.Fingerprint, rec.Payload, rec.OccurredAt.UTC(), time.Now().UTC())
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	domainavailability "doorly/internal/domain/availability"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS listings (
	id            text PRIMARY KEY,
	host_id       text NOT NULL,
	title         text NOT NULL,
	rate_daily    bigint NOT NULL,
	rate_weekly   bigint,
	rate_monthly  bigint,
	currency      text NOT NULL,
	state         text NOT NULL,
	rating        double precision NOT NULL DEFAULT 0,
	reviews_count integer NOT NULL DEFAULT 0,
	created_at    timestamptz NOT NULL,
	updated_at    timestamptz NOT NULL,
	version       bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id                  text PRIMARY KEY,
	listing_id          text NOT NULL REFERENCES listings (id),
	renter_id           text NOT NULL,
	host_id             text NOT NULL,
	start_date          date NOT NULL,
	end_date            date NOT NULL,
	price               jsonb NOT NULL,
	status              text NOT NULL,
	payment_reference   text UNIQUE,
	hold_expires_at     timestamptz,
	paid_at             timestamptz,
	cancel_reason       text NOT NULL DEFAULT '',
	cancelled_by        text NOT NULL DEFAULT '',
	refund_amount       bigint NOT NULL DEFAULT 0,
	refund_currency     text NOT NULL DEFAULT '',
	dispute_reason      text NOT NULL DEFAULT '',
	disputed_by         text NOT NULL DEFAULT '',
	dispute_resolved_at timestamptz,
	created_at          timestamptz NOT NULL,
	updated_at          timestamptz NOT NULL,
	version             bigint NOT NULL,
	CHECK (end_date >= start_date)
);

CREATE INDEX IF NOT EXISTS bookings_renter_idx ON bookings (renter_id);
CREATE INDEX IF NOT EXISTS bookings_host_idx ON bookings (host_id);
CREATE INDEX IF NOT EXISTS bookings_status_idx ON bookings (status);

CREATE TABLE IF NOT EXISTS reviews (
	id         text PRIMARY KEY,
	booking_id text NOT NULL UNIQUE REFERENCES bookings (id),
	listing_id text NOT NULL REFERENCES listings (id),
	author_id  text NOT NULL,
	rating     integer NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment    text NOT NULL,
	created_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS reviews_listing_idx ON reviews (listing_id, created_at DESC);

CREATE TABLE IF NOT EXISTS outbox (
	id              text PRIMARY KEY,
	name            text NOT NULL,
	payload         bytea NOT NULL,
	occurred_at     timestamptz NOT NULL,
	aggregate       text NOT NULL,
	headers         jsonb NOT NULL DEFAULT '{}',
	state           text NOT NULL,
	attempts        integer NOT NULL DEFAULT 0,
	next_attempt_at timestamptz NOT NULL,
	claimed_by      text NOT NULL DEFAULT '',
	claimed_at      timestamptz,
	sent_at         timestamptz,
	last_error      text NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (state, next_attempt_at);

CREATE TABLE IF NOT EXISTS idempotency (
	key         text PRIMARY KEY,
	fingerprint text NOT NULL DEFAULT '',
	payload     bytea,
	occurred_at timestamptz NOT NULL,
	created_at  timestamptz NOT NULL
);

ALTER TABLE idempotency ADD COLUMN IF NOT EXISTS fingerprint text NOT NULL DEFAULT '';

CREATE TABLE IF NOT EXISTS inbox (
	consumer    text NOT NULL,
	event_id    text NOT NULL,
	received_at timestamptz NOT NULL,
	PRIMARY KEY (consumer, event_id)
);
`

// The exclusion constraint is recreated on every start so the range bounds
// follow the configured turnover policy.
const exclusionTemplate = `
ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_no_overlap;
ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
	listing_id WITH =,
	%s WITH &&
) WHERE (status IN ('HOLD', 'CONFIRMED', 'COMPLETED', 'DISPUTED'));
`

const (
	inclusiveRange = "daterange(start_date, end_date, '[]')"
	// A multi-day stay leaves its last day open for the next arrival; a
	// one-day stay still occupies its day.
	turnoverRange = "daterange(start_date, CASE WHEN start_date = end_date THEN end_date + 1 ELSE end_date END, '[)')"
)

// Migrate creates the schema and the overlap constraint for the given policy.
func Migrate(ctx context.Context, pool *pgxpool.Pool, policy domainavailability.Policy) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	expr := inclusiveRange
	if policy.AllowSameDayTurnover {
		expr = turnoverRange
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(exclusionTemplate, expr)); err != nil {
		return fmt.Errorf("postgres: apply exclusion constraint: %w", err)
	}
	return nil
}

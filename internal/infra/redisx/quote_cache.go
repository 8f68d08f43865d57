package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"doorly/internal/app/policies"
	domainlistings "doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
	domainrange "doorly/internal/domain/shared/daterange"
)

// QuoteCache memoizes quotes per listing version, so a rate change is never
// served a stale price. Redis failures fall back to the wrapped port.
type QuoteCache struct {
	Next   policies.PricingPort
	Redis  *redis.Client
	Logger *slog.Logger
}

func (c *QuoteCache) Quote(ctx context.Context, listing *domainlistings.Listing, dr domainrange.DateRange) (domainpricing.PriceBreakdown, error) {
	key := fmt.Sprintf(KeyQuote, listing.ID, listing.Version, dr.Start.Format(domainrange.Layout), dr.End.Format(domainrange.Layout))
	raw, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached domainpricing.PriceBreakdown
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger().Warn("quote cache read failed", "listing_id", listing.ID, "error", err)
	}

	quote, err := c.Next.Quote(ctx, listing, dr)
	if err != nil {
		return quote, err
	}
	if payload, err := json.Marshal(quote); err == nil {
		if err := c.Redis.Set(ctx, key, payload, TTLQuote).Err(); err != nil {
			c.logger().Warn("quote cache write failed", "listing_id", listing.ID, "error", err)
		}
	}
	return quote, nil
}

func (c *QuoteCache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

var _ policies.PricingPort = (*QuoteCache)(nil)

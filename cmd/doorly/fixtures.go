package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"doorly/internal/app/uow"
	"doorly/internal/domain/listings"
	domainpricing "doorly/internal/domain/pricing"
)

type listingFixture struct {
	ID    string       `json:"id"`
	Host  string       `json:"host"`
	Title string       `json:"title"`
	Rates fixtureRates `json:"rates"`
}

type fixtureRates struct {
	Daily    int64  `json:"daily"`
	Weekly   *int64 `json:"weekly"`
	Monthly  *int64 `json:"monthly"`
	Currency string `json:"currency"`
}

// loadListingFixtures stores demo listings that do not exist yet. Each listing
// is written in its own unit so one bad entry does not block the rest.
func loadListingFixtures(ctx context.Context, factory uow.UoWFactory, path, currency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		if fx.Rates.Currency == "" {
			fx.Rates.Currency = currency
		}
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:    listings.ListingID(fx.ID),
			Host:  listings.HostID(fx.Host),
			Title: fx.Title,
			Rates: listings.RateTable{
				Daily:    fx.Rates.Daily,
				Weekly:   fx.Rates.Weekly,
				Monthly:  fx.Rates.Monthly,
				Currency: fx.Rates.Currency,
			},
			Now: now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if !domainpricing.Monotonic(listing.Rates) {
			logger.Warn("fixture rate ladder is not monotonic", "listing_id", fx.ID)
		}
		stored, err := storeListing(ctx, factory, listing)
		if err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		if stored {
			logger.Info("listing fixture imported", "listing_id", listing.ID)
		}
	}
	return nil
}

func storeListing(ctx context.Context, factory uow.UoWFactory, listing *listings.Listing) (bool, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	defer func() { _ = unit.Rollback(ctx) }()
	if _, err := unit.Listings().ByID(ctx, listing.ID); err == nil {
		return false, nil
	} else if !errors.Is(err, listings.ErrNotFound) {
		return false, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return false, err
	}
	return true, unit.Commit(ctx)
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

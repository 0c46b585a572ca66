// Package store persists vehicle listings in SQLite or PostgreSQL.
package store

import (
	"context"

	"github.com/sells-group/carvalue/internal/model"
)

// Store is the listing repository. Implementations return fresh slices on
// every call and are safe for concurrent use.
type Store interface {
	// FindListings returns every listing for the exact year whose make and
	// model match case-insensitively. No matches yields an empty slice.
	FindListings(ctx context.Context, year int, carMake, carModel string) ([]model.Listing, error)

	// InsertListings appends listings and returns the number stored.
	InsertListings(ctx context.Context, listings []model.Listing) (int64, error)

	// ReplaceListings atomically swaps the full listing set for listings.
	ReplaceListings(ctx context.Context, listings []model.Listing) (int64, error)

	CountListings(ctx context.Context) (int64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// listingColumns is the insert column order shared by both backends.
var listingColumns = []string{
	"id", "vin", "year", "make", "model",
	"dealer_city", "dealer_state", "listing_price", "listing_mileage",
}

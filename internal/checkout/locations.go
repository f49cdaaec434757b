package checkout

import (
	"context"

	"github.com/example/storefront-sync/internal/logger"
)

const StoreLocationsCollection = "storeLocations"

type StoreLocation struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}

// DefaultStoreLocations is offered when none are stored.
var DefaultStoreLocations = []StoreLocation{
	{ID: "store-1", Name: "F&H", Address: "Astor Green, Kanke Road, Gandhi Nagar, Shop No 13"},
}

// StoreLocations lists the pickup points. An empty collection or a failed
// read falls back to DefaultStoreLocations.
func (s *Service) StoreLocations(ctx context.Context) []StoreLocation {
	snaps, err := s.store.List(ctx, StoreLocationsCollection)
	if err != nil {
		logger.Component("Checkout").WithError(err).Warn("failed to load store locations")
		return defaultLocations()
	}

	locations := make([]StoreLocation, 0, len(snaps))
	for _, snap := range snaps {
		var loc StoreLocation
		if err := snap.DataTo(&loc); err != nil {
			continue
		}
		loc.ID = snap.ID
		locations = append(locations, loc)
	}
	if len(locations) == 0 {
		return defaultLocations()
	}
	return locations
}

// SaveStoreLocation stores loc under its id.
func (s *Service) SaveStoreLocation(ctx context.Context, loc StoreLocation) error {
	return s.store.Set(ctx, StoreLocationsCollection, loc.ID, loc)
}

func defaultLocations() []StoreLocation {
	return append([]StoreLocation(nil), DefaultStoreLocations...)
}

package fleet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is the read-only query interface the report pipeline consumes.
// The production implementation lives with the excluded database layer;
// MemoryStore below satisfies it for tests, fixtures, and one-shot runs.
type Store interface {
	// CountVehicles returns the total number of tracked vehicles, unfiltered.
	CountVehicles(ctx context.Context) (int, error)

	// FindVehicles returns the vehicles matching the filter.
	FindVehicles(ctx context.Context, filter FilterSet) ([]Vehicle, error)

	// FindLocation resolves display metadata for a location ID.
	// Returns (nil, nil) when no location with that ID exists.
	FindLocation(ctx context.Context, id string) (*Location, error)
}

// MemoryStore is an in-memory Store backed by slices loaded from fixtures.
type MemoryStore struct {
	mu        sync.RWMutex
	vehicles  []Vehicle
	locations map[string]Location
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations: make(map[string]Location),
	}
}

// AddVehicle adds a vehicle to the store.
func (s *MemoryStore) AddVehicle(v Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = append(s.vehicles, v)
}

// AddLocation adds a location record to the store.
func (s *MemoryStore) AddLocation(l Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.ID] = l
}

// CountVehicles implements Store.
func (s *MemoryStore) CountVehicles(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vehicles), nil
}

// FindVehicles implements Store.
func (s *MemoryStore) FindVehicles(ctx context.Context, filter FilterSet) ([]Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		if filter.Matches(v) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// FindLocation implements Store.
func (s *MemoryStore) FindLocation(ctx context.Context, id string) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.locations[id]; ok {
		return &l, nil
	}
	return nil, nil
}

// fixtureFile is the YAML shape of a fleet fixture file.
type fixtureFile struct {
	Vehicles  []Vehicle  `yaml:"vehicles"`
	Locations []Location `yaml:"locations"`
}

// LoadFixtures loads vehicles and locations from a YAML fixture file into
// the store. Used by the CLI and tests to run the pipeline without the
// excluded database layer.
func (s *MemoryStore) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixtures: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse fixtures: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = append(s.vehicles, f.Vehicles...)
	for _, l := range f.Locations {
		s.locations[l.ID] = l
	}
	return nil
}

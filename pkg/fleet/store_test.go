package fleet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func seedStore() *MemoryStore {
	s := NewMemoryStore()
	s.AddLocation(Location{ID: "loc-1", Name: "Lagos Port", Type: "port", City: "Lagos", Country: "Nigeria"})
	s.AddLocation(Location{ID: "loc-2", Name: "Abuja Depot", Type: "depot", City: "Abuja", Country: "Nigeria"})

	s.AddVehicle(Vehicle{ID: "v1", Make: "Toyota", Model: "Hilux", FuelType: "diesel",
		Status: StatusDelivered, Location: LocationRef{ID: "loc-1", Name: "Lagos Port", Type: "port"}})
	s.AddVehicle(Vehicle{ID: "v2", Make: "Ford", Model: "Ranger", FuelType: "petrol",
		Status: StatusInTransit, Location: LocationRef{ID: "loc-2", Name: "Abuja Depot", Type: "depot"}})
	s.AddVehicle(Vehicle{ID: "v3", Make: "Toyota", Model: "Corolla", FuelType: "petrol",
		Status: StatusDelivered, Location: LocationRef{ID: "loc-1", Name: "Lagos Port", Type: "port"}})
	return s
}

func TestMemoryStoreCountVehicles(t *testing.T) {
	s := seedStore()

	n, err := s.CountVehicles(context.Background())
	if err != nil {
		t.Fatalf("CountVehicles failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 vehicles, got %d", n)
	}
}

func TestMemoryStoreFindVehicles(t *testing.T) {
	s := seedStore()

	matched, err := s.FindVehicles(context.Background(), FilterSet{Status: StatusDelivered})
	if err != nil {
		t.Fatalf("FindVehicles failed: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("expected 2 delivered vehicles, got %d", len(matched))
	}

	all, err := s.FindVehicles(context.Background(), FilterSet{})
	if err != nil {
		t.Fatalf("FindVehicles failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 vehicles with empty filter, got %d", len(all))
	}
}

func TestMemoryStoreFindLocation(t *testing.T) {
	s := seedStore()

	loc, err := s.FindLocation(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("FindLocation failed: %v", err)
	}
	if loc == nil || loc.Name != "Lagos Port" {
		t.Errorf("expected Lagos Port, got %+v", loc)
	}

	missing, err := s.FindLocation(context.Background(), "loc-404")
	if err != nil {
		t.Fatalf("FindLocation failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown location, got %+v", missing)
	}
}

func TestMemoryStoreHonorsCancellation(t *testing.T) {
	s := seedStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.CountVehicles(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
	if _, err := s.FindVehicles(ctx, FilterSet{}); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestLoadFixtures(t *testing.T) {
	fixture := `
vehicles:
  - id: v1
    make: Toyota
    model: Hilux
    fuel_type: diesel
    status: DELIVERED
    location:
      id: loc-1
      name: Lagos Port
      type: port
locations:
  - id: loc-1
    name: Lagos Port
    type: port
    city: Lagos
    country: Nigeria
`
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	s := NewMemoryStore()
	if err := s.LoadFixtures(path); err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}

	n, _ := s.CountVehicles(context.Background())
	if n != 1 {
		t.Errorf("expected 1 vehicle, got %d", n)
	}

	loc, _ := s.FindLocation(context.Background(), "loc-1")
	if loc == nil || loc.City != "Lagos" {
		t.Errorf("expected Lagos location, got %+v", loc)
	}
}

func TestLoadFixturesMissingFile(t *testing.T) {
	s := NewMemoryStore()
	if err := s.LoadFixtures("/nonexistent/fleet.yaml"); err == nil {
		t.Error("expected error for missing fixture file")
	}
}

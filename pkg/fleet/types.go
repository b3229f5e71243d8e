// Package fleet provides the read-model for tracked vehicles and the
// read-only store interface the report pipeline consumes. The full CRUD
// layer and its database live outside this module; this package is the
// boundary the Aggregation Service queries through.
package fleet

import "strings"

// VehicleStatus is the normalized lifecycle status of a tracked vehicle.
// Stored values use upper snake case (e.g., "IN_TRANSIT").
type VehicleStatus = string

const (
	StatusAvailable   VehicleStatus = "AVAILABLE"
	StatusInTransit   VehicleStatus = "IN_TRANSIT"
	StatusDelivered   VehicleStatus = "DELIVERED"
	StatusMaintenance VehicleStatus = "MAINTENANCE"
	StatusRetired     VehicleStatus = "RETIRED"
)

// LocationRef is the reduced location projection attached to a vehicle.
type LocationRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// OwnerRef is the reduced responsible-party projection attached to a vehicle.
type OwnerRef struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	City    string `json:"city" yaml:"city"`
	Country string `json:"country" yaml:"country"`
}

// Vehicle is a read-projection of a tracked vehicle with the fields needed
// for reporting. Never mutated after creation.
type Vehicle struct {
	ID       string        `json:"id" yaml:"id"`
	Make     string        `json:"make" yaml:"make"`
	Model    string        `json:"model" yaml:"model"`
	Year     int           `json:"year" yaml:"year"`
	FuelType string        `json:"fuelType" yaml:"fuel_type"`
	Plate    string        `json:"plate" yaml:"plate"`
	Status   VehicleStatus `json:"status" yaml:"status"`
	Location LocationRef   `json:"location" yaml:"location"`
	Owner    OwnerRef      `json:"owner" yaml:"owner"`
}

// Location is the full location record used to resolve display metadata
// for location-grouped reports.
type Location struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	City    string `json:"city" yaml:"city"`
	Country string `json:"country" yaml:"country"`
}

// FilterSet is the caller-supplied constraint combination narrowing which
// vehicles are included in a report. All fields are optional; an empty
// string or the sentinel "all" imposes no constraint on that dimension.
// Immutable once constructed.
type FilterSet struct {
	Status     string `json:"status,omitempty" yaml:"status,omitempty"`
	LocationID string `json:"locationId,omitempty" yaml:"location_id,omitempty"`
	FuelType   string `json:"fuelType,omitempty" yaml:"fuel_type,omitempty"`
	Make       string `json:"make,omitempty" yaml:"make,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
}

// constrains reports whether a filter field value narrows the result set.
func constrains(v string) bool {
	return v != "" && !strings.EqualFold(v, "all")
}

// IsEmpty reports whether no field imposes any constraint.
func (f FilterSet) IsEmpty() bool {
	return !constrains(f.Status) && !constrains(f.LocationID) &&
		!constrains(f.FuelType) && !constrains(f.Make) && !constrains(f.Model)
}

// Matches reports whether a vehicle satisfies every present constraint.
// Status, location, and fuel type match exactly; make and model match by
// case-insensitive containment.
func (f FilterSet) Matches(v Vehicle) bool {
	if constrains(f.Status) && v.Status != f.Status {
		return false
	}
	if constrains(f.LocationID) && v.Location.ID != f.LocationID {
		return false
	}
	if constrains(f.FuelType) && !strings.EqualFold(v.FuelType, f.FuelType) {
		return false
	}
	if constrains(f.Make) && !strings.Contains(strings.ToLower(v.Make), strings.ToLower(f.Make)) {
		return false
	}
	if constrains(f.Model) && !strings.Contains(strings.ToLower(v.Model), strings.ToLower(f.Model)) {
		return false
	}
	return true
}

// String returns a compact human-readable description of the active
// constraints, e.g. "status=DELIVERED, make~toyota". Returns "none" when
// no constraint is active.
func (f FilterSet) String() string {
	var parts []string
	if constrains(f.Status) {
		parts = append(parts, "status="+f.Status)
	}
	if constrains(f.LocationID) {
		parts = append(parts, "location="+f.LocationID)
	}
	if constrains(f.FuelType) {
		parts = append(parts, "fuel="+f.FuelType)
	}
	if constrains(f.Make) {
		parts = append(parts, "make~"+f.Make)
	}
	if constrains(f.Model) {
		parts = append(parts, "model~"+f.Model)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

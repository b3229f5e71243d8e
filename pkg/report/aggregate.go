// Package report provides the aggregation stage of the report pipeline.
// It turns the fleet store's records into grouped, counted summaries that
// the renderer consumes.
package report

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	fterrors "github.com/tradelane/fleettrack/pkg/errors"
	"github.com/tradelane/fleettrack/pkg/fleet"
)

// Dimension selects the grouping strategy for aggregation. The set is
// closed: each dimension carries its own key extraction and labeling.
type Dimension string

const (
	// DimensionStatus groups vehicles by lifecycle status.
	DimensionStatus Dimension = "status"

	// DimensionLocation groups vehicles by location ID and joins location
	// display metadata onto each group.
	DimensionLocation Dimension = "location"
)

// UnknownLocationName is materialized for location IDs with no matching
// metadata so group iteration never needs nil checks.
const UnknownLocationName = "Unknown Location"

// GroupSummary is an aggregated count for one value of the grouping dimension.
type GroupSummary struct {
	// Key is the raw grouping key (status value or location ID).
	Key string `json:"key"`

	// Label is the human-readable group label (humanized status or
	// location name).
	Label string `json:"label"`

	// LocationType is set for location-dimension groups only.
	LocationType string `json:"locationType,omitempty"`

	// Count is the number of filtered vehicles in this group.
	Count int `json:"count"`

	// Percentage is Count/FilteredCount*100 rounded to two decimals.
	// Zero when the filtered set is empty.
	Percentage float64 `json:"percentage"`
}

// Dataset is the aggregation output handed to the renderer.
//
// Invariants: every filtered vehicle appears in exactly one group's member
// list, the group counts sum to FilteredCount, and FilteredCount never
// exceeds TotalCount.
type Dataset struct {
	Dimension     Dimension                  `json:"dimension"`
	Filter        fleet.FilterSet            `json:"filter"`
	TotalCount    int                        `json:"totalCount"`
	FilteredCount int                        `json:"filteredCount"`
	Groups        []GroupSummary             `json:"groups"`
	Members       map[string][]fleet.Vehicle `json:"-"`
}

// Aggregator runs read-only grouped aggregation against a fleet store.
type Aggregator struct {
	store fleet.Store
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(store fleet.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate queries the store with the filter, groups the matching vehicles
// by the chosen dimension, and computes per-group counts and percentages.
// The total count and the filtered set are fetched concurrently; both are
// reported even when nothing matches. Store errors surface as a single
// AGGREGATION_FAILED error carrying the filter for reproduction.
func (a *Aggregator) Aggregate(ctx context.Context, filter fleet.FilterSet, dim Dimension) (*Dataset, error) {
	var (
		total    int
		vehicles []fleet.Vehicle
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.store.CountVehicles(gctx)
		if err != nil {
			return err
		}
		total = n
		return nil
	})
	g.Go(func() error {
		vs, err := a.store.FindVehicles(gctx, filter)
		if err != nil {
			return err
		}
		vehicles = vs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fterrors.WrapAggregation(err, "fleet store query failed").
			WithContext("filter", filter.String()).
			WithContext("dimension", string(dim))
	}

	ds := &Dataset{
		Dimension:     dim,
		Filter:        filter,
		TotalCount:    total,
		FilteredCount: len(vehicles),
		Members:       make(map[string][]fleet.Vehicle),
	}

	counts := make(map[string]int)
	for _, v := range vehicles {
		key := groupKey(v, dim)
		counts[key]++
		ds.Members[key] = append(ds.Members[key], v)
	}

	for key, count := range counts {
		ds.Groups = append(ds.Groups, GroupSummary{
			Key:        key,
			Count:      count,
			Percentage: percentage(count, ds.FilteredCount),
		})
	}

	// Descending count, ties broken by key for deterministic output.
	sort.Slice(ds.Groups, func(i, j int) bool {
		if ds.Groups[i].Count != ds.Groups[j].Count {
			return ds.Groups[i].Count > ds.Groups[j].Count
		}
		return ds.Groups[i].Key < ds.Groups[j].Key
	})

	if err := a.resolveLabels(ctx, ds, dim); err != nil {
		return nil, err
	}
	return ds, nil
}

// resolveLabels fills the human-readable label for each group. Location
// groups join display metadata from the store; missing metadata resolves
// to the Unknown Location placeholder rather than erroring.
func (a *Aggregator) resolveLabels(ctx context.Context, ds *Dataset, dim Dimension) error {
	for i := range ds.Groups {
		g := &ds.Groups[i]
		switch dim {
		case DimensionLocation:
			loc, err := a.store.FindLocation(ctx, g.Key)
			if err != nil {
				return fterrors.WrapAggregation(err, "location metadata lookup failed").
					WithContext("locationId", g.Key)
			}
			if loc == nil {
				g.Label = UnknownLocationName
			} else {
				g.Label = loc.Name
				g.LocationType = loc.Type
			}
		default:
			g.Label = HumanizeLabel(g.Key)
		}
	}
	return nil
}

// groupKey extracts the raw grouping key for a vehicle under a dimension.
func groupKey(v fleet.Vehicle, dim Dimension) string {
	switch dim {
	case DimensionLocation:
		return v.Location.ID
	default:
		return v.Status
	}
}

// percentage computes count/filtered*100 rounded half-up to two decimals.
// Emits 0 when the filtered set is empty. Rounded group percentages may sum
// slightly off 100 for unusual distributions; that is accepted and not
// normalized.
func percentage(count, filtered int) float64 {
	if filtered == 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(count) * 100).
		Div(decimal.NewFromInt(int64(filtered))).
		Round(2)
	f, _ := p.Float64()
	return f
}

// HumanizeLabel converts a normalized enumerated value to a display label
// by splitting on separator characters and title-casing each word, e.g.
// "IN_TRANSIT" -> "In Transit". Cosmetic only; grouping keys stay raw.
func HumanizeLabel(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		lw := strings.ToLower(w)
		words[i] = strings.ToUpper(lw[:1]) + lw[1:]
	}
	return strings.Join(words, " ")
}

// ValidDimension reports whether s names a known grouping dimension.
func ValidDimension(s string) bool {
	switch Dimension(s) {
	case DimensionStatus, DimensionLocation:
		return true
	}
	return false
}

// Package store persists search and resolve runs with their results.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind, params any) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats any) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SavePlaces(ctx context.Context, runID string, places []model.PlaceResult) error
	SaveEntities(ctx context.Context, runID string, entities []model.ResolvedEntity) error
	ListPlaces(ctx context.Context, runID string) ([]model.PlaceResult, error)
	ListEntities(ctx context.Context, runID string) ([]model.ResolvedEntity, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var placeColumns = []string{
	"run_id", "position", "name", "phone", "address", "rating", "reviews",
	"latitude", "longitude", "distance_m", "service_options",
}

var entityColumns = []string{
	"run_id", "position", "query_name", "resolved_name", "phone", "address",
	"latitude", "longitude", "rating", "reviews", "tier", "distance_m", "error_reason",
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	return b, eris.Wrap(err, "store: marshal")
}

func coords(p *geo.GeoPoint) (lat, lon *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Latitude, &p.Longitude
}

func pointFrom(lat, lon *float64) *geo.GeoPoint {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.GeoPoint{Latitude: *lat, Longitude: *lon}
}

func placeRow(runID string, i int, p model.PlaceResult) ([]any, error) {
	var opts any
	if len(p.ServiceOptions) > 0 {
		b, err := json.Marshal(p.ServiceOptions)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal service options")
		}
		opts = string(b)
	}
	lat, lon := coords(p.Coordinates)
	return []any{
		runID, i, p.Name, p.Phone, p.Address, p.Rating, p.Reviews,
		lat, lon, p.DistanceMeters, opts,
	}, nil
}

func entityRow(runID string, i int, e model.ResolvedEntity) []any {
	lat, lon := coords(e.Coordinates)
	return []any{
		runID, i, e.QueryName, e.ResolvedName, e.Phone, e.Address,
		lat, lon, e.Rating, e.Reviews, e.ConfidenceTier.String(), e.DistanceMeters, e.ErrorReason,
	}
}

// placeScan holds the nullable columns of a places row.
type placeScan struct {
	rec      model.PlaceResult
	rating   *float64
	reviews  *int64
	lat, lon *float64
	distance *float64
	options  *string
}

func (s *placeScan) dest() []any {
	return []any{
		&s.rec.Name, &s.rec.Phone, &s.rec.Address, &s.rating, &s.reviews,
		&s.lat, &s.lon, &s.distance, &s.options,
	}
}

func (s *placeScan) result() (model.PlaceResult, error) {
	r := s.rec
	r.Rating = s.rating
	if s.reviews != nil {
		r.Reviews = model.IntPtr(int(*s.reviews))
	}
	r.Coordinates = pointFrom(s.lat, s.lon)
	r.DistanceMeters = s.distance
	if s.options != nil && *s.options != "" {
		if err := json.Unmarshal([]byte(*s.options), &r.ServiceOptions); err != nil {
			return r, eris.Wrap(err, "store: unmarshal service options")
		}
	}
	return r, nil
}

// entityScan holds the nullable columns of an entities row.
type entityScan struct {
	ent      model.ResolvedEntity
	lat, lon *float64
	rating   *float64
	reviews  *int64
	tier     string
	distance *float64
}

func (s *entityScan) dest() []any {
	return []any{
		&s.ent.QueryName, &s.ent.ResolvedName, &s.ent.Phone, &s.ent.Address,
		&s.lat, &s.lon, &s.rating, &s.reviews, &s.tier, &s.distance, &s.ent.ErrorReason,
	}
}

func (s *entityScan) result() (model.ResolvedEntity, error) {
	e := s.ent
	e.Coordinates = pointFrom(s.lat, s.lon)
	e.Rating = s.rating
	if s.reviews != nil {
		e.Reviews = model.IntPtr(int(*s.reviews))
	}
	e.DistanceMeters = s.distance
	tier, err := model.ParseTier(s.tier)
	if err != nil {
		return e, eris.Wrap(err, "store: scan entity tier")
	}
	e.ConfidenceTier = tier
	return e, nil
}

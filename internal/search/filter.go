package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/pkg/geocode"
)

// DefaultRepairTimeout bounds the geocode that repairs missing coordinates.
const DefaultRepairTimeout = 5 * time.Second

// RadiusFilter decides whether a record lies within the search radius.
// Records without coordinates get one geocode attempt of their address.
// A record whose distance cannot be determined is rejected.
type RadiusFilter struct {
	geocoder geocode.Client
	timeout  time.Duration
	log      *zap.Logger
}

// NewRadiusFilter creates a filter. geocoder may be nil, in which case
// records without coordinates are always rejected. It should not share a
// cache with the place-name geocoder used to find search centers.
func NewRadiusFilter(geocoder geocode.Client, timeout time.Duration) *RadiusFilter {
	if timeout <= 0 {
		timeout = DefaultRepairTimeout
	}
	return &RadiusFilter{
		geocoder: geocoder,
		timeout:  timeout,
		log:      zap.L().With(zap.String("component", "radius_filter")),
	}
}

// Keep reports whether rec is within radiusMeters of center and returns the
// distance when it is. Repaired coordinates are written back to rec.
func (f *RadiusFilter) Keep(ctx context.Context, rec *model.PlaceRecord, center geo.GeoPoint, radiusMeters float64) (float64, bool) {
	if rec == nil {
		return 0, false
	}
	if rec.Coordinates == nil && !f.repair(ctx, rec) {
		return 0, false
	}
	d := geo.Distance(center, *rec.Coordinates)
	if d > radiusMeters {
		return d, false
	}
	return d, true
}

func (f *RadiusFilter) repair(ctx context.Context, rec *model.PlaceRecord) bool {
	if f.geocoder == nil || rec.Address == "" {
		return false
	}
	gctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := f.geocoder.Geocode(gctx, rec.Address)
	if err != nil {
		f.log.Debug("coordinate repair failed", zap.String("name", rec.Name), zap.Error(err))
		return false
	}
	if res == nil || !res.Matched {
		return false
	}
	p := geo.GeoPoint{Latitude: res.Latitude, Longitude: res.Longitude}
	if p.Validate() != nil {
		return false
	}
	rec.Coordinates = &p
	return true
}

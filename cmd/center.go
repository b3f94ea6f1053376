package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/pkg/geocode"
)

// centerInput is the set of ways a caller can name a search center.
type centerInput struct {
	Lat, Lon *float64 // explicit coordinates
	Place    string   // geocoded free-form place name
	Location string   // "@lat,lon[,zoomz]"
}

func (c centerInput) given() int {
	n := 0
	if c.Lat != nil || c.Lon != nil {
		n++
	}
	if strings.TrimSpace(c.Place) != "" {
		n++
	}
	if strings.TrimSpace(c.Location) != "" {
		n++
	}
	return n
}

// errNoCenter is returned when no center was supplied.
var errNoCenter = eris.New("a center is required: use lat/lon, place, or location")

// resolveCenter turns c into a point. zoom is non-zero only when a location
// string carried one.
func resolveCenter(ctx context.Context, gc geocode.Client, c centerInput) (geo.GeoPoint, int, error) {
	switch c.given() {
	case 0:
		return geo.GeoPoint{}, 0, errNoCenter
	case 1:
	default:
		return geo.GeoPoint{}, 0, eris.New("give only one of lat/lon, place, or location")
	}

	switch {
	case c.Location != "":
		p, zoom, err := geo.ParseLocation(strings.TrimSpace(c.Location))
		if err != nil {
			return geo.GeoPoint{}, 0, err
		}
		return p, zoom, nil

	case c.Place != "":
		if gc == nil {
			return geo.GeoPoint{}, 0, eris.New("no geocoder configured for place lookup")
		}
		res, err := gc.Geocode(ctx, c.Place)
		if err != nil {
			return geo.GeoPoint{}, 0, eris.Wrapf(err, "geocode place %q", c.Place)
		}
		if res == nil || !res.Matched {
			return geo.GeoPoint{}, 0, eris.Errorf("place %q not found", c.Place)
		}
		p := geo.GeoPoint{Latitude: res.Latitude, Longitude: res.Longitude}
		zap.L().Info("geocoded search center",
			zap.String("place", c.Place),
			zap.String("address", res.Address),
			zap.String("source", res.Source),
			zap.Float64("lat", p.Latitude),
			zap.Float64("lon", p.Longitude),
		)
		return p, 0, p.Validate()

	default:
		if c.Lat == nil || c.Lon == nil {
			return geo.GeoPoint{}, 0, eris.New("lat and lon must be given together")
		}
		p := geo.GeoPoint{Latitude: *c.Lat, Longitude: *c.Lon}
		return p, 0, p.Validate()
	}
}

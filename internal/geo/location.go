package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// FormatLocation encodes a point and zoom as the search service's viewport
// string, "@{lat},{lon},{zoom}z".
func FormatLocation(p GeoPoint, zoom int) string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(zoom))
	b.WriteByte('z')
	return b.String()
}

// ParseLocation decodes a viewport string such as "@40.7455096,-74.0083012,14z".
// The zoom component is optional; when absent the returned zoom is 0.
func ParseLocation(s string) (GeoPoint, int, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "@") {
		return GeoPoint{}, 0, eris.Errorf("geo: location %q must start with @", s)
	}
	parts := strings.Split(strings.TrimPrefix(raw, "@"), ",")
	if len(parts) < 2 || len(parts) > 3 {
		return GeoPoint{}, 0, eris.Errorf("geo: location %q must be @lat,lon[,zoomz]", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return GeoPoint{}, 0, eris.Wrapf(err, "geo: parse latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return GeoPoint{}, 0, eris.Wrapf(err, "geo: parse longitude in %q", s)
	}
	p := GeoPoint{Latitude: lat, Longitude: lon}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, 0, err
	}

	zoom := 0
	if len(parts) == 3 {
		zs := strings.TrimSuffix(strings.TrimSpace(parts[2]), "z")
		zf, err := strconv.ParseFloat(zs, 64)
		if err != nil {
			return GeoPoint{}, 0, eris.Wrapf(err, "geo: parse zoom in %q", s)
		}
		zoom = int(math.Trunc(zf))
		if !ValidZoom(zoom) {
			return GeoPoint{}, 0, eris.Errorf("geo: zoom %d out of range %d-%d", zoom, MinZoom, MaxZoom)
		}
	}
	return p, zoom, nil
}

// Package geo provides great-circle distance math, zoom classification, and
// sample-point planning for area searches.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// MetersPerDegree approximates the length of one degree of latitude.
const MetersPerDegree = 111000.0

// GeoPoint is an immutable latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports whether the point lies within the WGS84 coordinate range.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return eris.Errorf("geo: latitude %v out of range", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return eris.Errorf("geo: longitude %v out of range", p.Longitude)
	}
	return nil
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b GeoPoint) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Offset returns p shifted north by northMeters and east by eastMeters using
// the flat degree approximation. Accuracy degrades toward the poles.
func (p GeoPoint) Offset(northMeters, eastMeters float64) GeoPoint {
	latPerMeter := 1 / MetersPerDegree
	lonPerMeter := 1 / (MetersPerDegree * math.Cos(toRadians(p.Latitude)))
	return GeoPoint{
		Latitude:  p.Latitude + northMeters*latPerMeter,
		Longitude: p.Longitude + eastMeters*lonPerMeter,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

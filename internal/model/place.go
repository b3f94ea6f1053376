// Package model holds the value types shared by the search, resolve, store,
// and output layers.
package model

import "github.com/sells-group/phone-finder/internal/geo"

// PlaceRecord is one business listing as returned by the place-search
// service, after alias resolution. Absent fields are zero (empty string or nil).
type PlaceRecord struct {
	Name           string          `json:"name" yaml:"name"`
	Phone          string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address        string          `json:"address,omitempty" yaml:"address,omitempty"`
	Rating         *float64        `json:"rating,omitempty" yaml:"rating,omitempty"`
	Reviews        *int            `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Coordinates    *geo.GeoPoint   `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	ServiceOptions map[string]bool `json:"service_options,omitempty" yaml:"service_options,omitempty"`
}

// HasPhone reports whether the record carries a phone number.
func (r PlaceRecord) HasPhone() bool { return r.Phone != "" }

// HasAddress reports whether the record carries an address.
func (r PlaceRecord) HasAddress() bool { return r.Address != "" }

// HasCoordinates reports whether the record carries coordinates.
func (r PlaceRecord) HasCoordinates() bool { return r.Coordinates != nil }

// PlaceResult is a PlaceRecord retained by an area search, annotated with its
// distance from the search center when a radius check was applied.
type PlaceResult struct {
	PlaceRecord    `yaml:",inline"`
	DistanceMeters *float64 `json:"distance_meters,omitempty" yaml:"distance_meters,omitempty"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

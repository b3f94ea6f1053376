// Package geocode resolves free-form place names and addresses to
// coordinates using Nominatim (primary) and Google (fallback).
package geocode

import (
	"context"
	"strings"
)

// Client geocodes a free-form query such as "Shibuya, Tokyo" or a street address.
type Client interface {
	// Geocode returns the best match for query. An unmatched query is not an
	// error: the result has Matched == false.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a query.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
	Source    string  `json:"source"`
	Quality   string  `json:"quality,omitempty"`
	Matched   bool    `json:"matched"`
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// normalizeQuery collapses whitespace and case so equivalent queries share a cache entry.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

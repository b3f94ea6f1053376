// Package place turns raw place-search listings into PlaceRecords and merges
// them into a deduplicated result set.
package place

import (
	"strconv"
	"strings"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
)

// Field aliases in resolution order. The first key holding a non-empty value
// wins. Localized response variants use the Japanese keys.
var (
	NameKeys       = []string{"title"}
	PhoneKeys      = []string{"phone", "電話"}
	AddressKeys    = []string{"address", "住所"}
	RatingKeys     = []string{"rating"}
	ReviewKeys     = []string{"reviews"}
	CoordinateKeys = []string{"gps_coordinates"}
	ServiceKeys    = []string{"service_options"}
	TakeoutKeys    = []string{"takeout", "テイクアウト"}
	latitudeKeys   = []string{"latitude", "lat"}
	longitudeKeys  = []string{"longitude", "lng", "lon"}
)

// Raw is one listing exactly as decoded from the service's JSON.
type Raw = map[string]any

// FromRaw resolves every logical field of raw through its alias list.
func FromRaw(raw Raw) model.PlaceRecord {
	rec := model.PlaceRecord{
		Name:    firstString(raw, NameKeys),
		Phone:   firstString(raw, PhoneKeys),
		Address: firstString(raw, AddressKeys),
	}
	if v, ok := firstFloat(raw, RatingKeys); ok {
		rec.Rating = &v
	}
	if v, ok := firstFloat(raw, ReviewKeys); ok {
		n := int(v)
		rec.Reviews = &n
	}
	if p, ok := coordinates(raw); ok {
		rec.Coordinates = &p
	}
	if opts := serviceOptions(raw); len(opts) > 0 {
		rec.ServiceOptions = opts
	}
	return rec
}

// FromRawList converts a page of listings, preserving order.
func FromRawList(raws []Raw) []model.PlaceRecord {
	out := make([]model.PlaceRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, FromRaw(r))
	}
	return out
}

// OffersTakeout reports whether the record's service options advertise takeout.
func OffersTakeout(rec model.PlaceRecord) bool {
	for _, k := range TakeoutKeys {
		if rec.ServiceOptions[k] {
			return true
		}
	}
	return false
}

func lookup(raw Raw, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func firstString(raw Raw, keys []string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func firstFloat(raw Raw, keys []string) (float64, bool) {
	v, ok := lookup(raw, keys)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coordinates(raw Raw) (geo.GeoPoint, bool) {
	v, ok := lookup(raw, CoordinateKeys)
	if !ok {
		return geo.GeoPoint{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return geo.GeoPoint{}, false
	}
	lat, latOK := firstFloat(m, latitudeKeys)
	lon, lonOK := firstFloat(m, longitudeKeys)
	if !latOK || !lonOK {
		return geo.GeoPoint{}, false
	}
	p := geo.GeoPoint{Latitude: lat, Longitude: lon}
	if p.Validate() != nil {
		return geo.GeoPoint{}, false
	}
	return p, true
}

func serviceOptions(raw Raw) map[string]bool {
	v, ok := lookup(raw, ServiceKeys)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, val := range m {
		if b, isBool := val.(bool); isBool {
			out[k] = b
		}
	}
	return out
}

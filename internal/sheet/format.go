package sheet

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/place"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatGeoJSON Format = "geojson"
)

// DefaultNoPhoneText is rendered in tabular output for records without a phone.
const DefaultNoPhoneText = "no phone"

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatJSON, FormatYAML, FormatGeoJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("sheet: unknown format %q", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Options configures rendering.
type Options struct {
	NoPhoneText string
}

func (o Options) noPhone() string {
	if o.NoPhoneText == "" {
		return DefaultNoPhoneText
	}
	return o.NoPhoneText
}

// WritePlaces encodes area-search results in format f.
func WritePlaces(w io.Writer, f Format, places []model.PlaceResult, opts Options) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, placeHeader, placeRows(places, opts))
	case FormatXLSX:
		return writeXLSX(w, "places", placeHeader, placeRows(places, opts))
	case FormatJSON:
		return writeJSON(w, nonNil(places))
	case FormatYAML:
		return writeYAML(w, nonNil(places))
	case FormatGeoJSON:
		return writeGeoJSON(w, placeFeatures(places))
	default:
		return eris.Errorf("sheet: unknown format %q", f)
	}
}

// WriteEntities encodes resolved entities in format f.
func WriteEntities(w io.Writer, f Format, entities []model.ResolvedEntity, opts Options) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, entityHeader, entityRows(entities, opts))
	case FormatXLSX:
		return writeXLSX(w, "entities", entityHeader, entityRows(entities, opts))
	case FormatJSON:
		return writeJSON(w, nonNil(entities))
	case FormatYAML:
		return writeYAML(w, nonNil(entities))
	case FormatGeoJSON:
		return writeGeoJSON(w, entityFeatures(entities))
	default:
		return eris.Errorf("sheet: unknown format %q", f)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var placeHeader = []string{
	"name", "phone", "address", "rating", "reviews", "latitude", "longitude", "distance_m", "takeout",
}

var entityHeader = []string{
	"query_name", "resolved_name", "phone", "address", "latitude", "longitude",
	"rating", "reviews", "confidence_tier", "distance_m", "error_reason",
}

func placeRows(places []model.PlaceResult, opts Options) [][]string {
	rows := make([][]string, 0, len(places))
	for _, p := range places {
		lat, lon := latLon(p.Coordinates)
		rows = append(rows, []string{
			p.Name,
			phoneText(p.Phone, opts),
			p.Address,
			floatText(p.Rating),
			intText(p.Reviews),
			lat, lon,
			floatText(p.DistanceMeters),
			strconv.FormatBool(place.OffersTakeout(p.PlaceRecord)),
		})
	}
	return rows
}

func entityRows(entities []model.ResolvedEntity, opts Options) [][]string {
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		lat, lon := latLon(e.Coordinates)
		rows = append(rows, []string{
			e.QueryName,
			e.ResolvedName,
			phoneText(e.Phone, opts),
			e.Address,
			lat, lon,
			floatText(e.Rating),
			intText(e.Reviews),
			e.ConfidenceTier.String(),
			floatText(e.DistanceMeters),
			e.ErrorReason,
		})
	}
	return rows
}

func phoneText(phone string, opts Options) string {
	if phone == "" {
		return opts.noPhone()
	}
	return phone
}

func floatText(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func latLon(p *geo.GeoPoint) (string, string) {
	if p == nil {
		return "", ""
	}
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64), strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	// BOM so spreadsheet apps detect UTF-8 for Japanese text.
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return eris.Wrap(err, "sheet: write bom")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "sheet: write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "sheet: write csv rows")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(v), "sheet: encode json")
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "sheet: encode yaml")
	}
	return eris.Wrap(enc.Close(), "sheet: close yaml encoder")
}

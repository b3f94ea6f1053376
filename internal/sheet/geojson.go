package sheet

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
)

// Records without coordinates have no geometry and are left out of GeoJSON output.

func pointGeometry(p *geo.GeoPoint) geom.T {
	return geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude})
}

func placeFeatures(places []model.PlaceResult) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(places))
	for _, p := range places {
		if p.Coordinates == nil {
			continue
		}
		props := map[string]any{"name": p.Name}
		if p.Phone != "" {
			props["phone"] = p.Phone
		}
		if p.Address != "" {
			props["address"] = p.Address
		}
		if p.Rating != nil {
			props["rating"] = *p.Rating
		}
		if p.Reviews != nil {
			props["reviews"] = *p.Reviews
		}
		if p.DistanceMeters != nil {
			props["distance_m"] = *p.DistanceMeters
		}
		features = append(features, &geojson.Feature{Geometry: pointGeometry(p.Coordinates), Properties: props})
	}
	return features
}

func entityFeatures(entities []model.ResolvedEntity) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(entities))
	for _, e := range entities {
		if e.Coordinates == nil {
			continue
		}
		props := map[string]any{
			"query_name":      e.QueryName,
			"resolved_name":   e.ResolvedName,
			"confidence_tier": e.ConfidenceTier.String(),
		}
		if e.Phone != "" {
			props["phone"] = e.Phone
		}
		if e.Address != "" {
			props["address"] = e.Address
		}
		if e.DistanceMeters != nil {
			props["distance_m"] = *e.DistanceMeters
		}
		features = append(features, &geojson.Feature{Geometry: pointGeometry(e.Coordinates), Properties: props})
	}
	return features
}

func writeGeoJSON(w io.Writer, features []*geojson.Feature) error {
	fc := geojson.FeatureCollection{Features: features}
	b, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "sheet: encode geojson")
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return eris.Wrap(err, "sheet: write geojson")
	}
	return nil
}

package geo

import "math"

// Default planner tuning. Both values are empirical: spacing keeps adjacent
// footprints overlapping, overshoot keeps edge footprints reaching the boundary.
const (
	DefaultSpacingFactor   = 0.4
	DefaultOvershootFactor = 1.2
)

// SamplePoint is one query location submitted to the search service.
type SamplePoint struct {
	Location  GeoPoint `json:"location"`
	ZoomLevel int      `json:"zoom_level"`
}

// PlanOptions tunes the coverage lattice. Zero fields use the defaults.
type PlanOptions struct {
	SpacingFactor   float64
	OvershootFactor float64
}

func (o PlanOptions) withDefaults() PlanOptions {
	if o.SpacingFactor <= 0 {
		o.SpacingFactor = DefaultSpacingFactor
	}
	if o.OvershootFactor <= 0 {
		o.OvershootFactor = DefaultOvershootFactor
	}
	return o
}

// Plan returns sample points whose query footprints jointly cover the circle
// of radiusMeters around center. The center is always first; the remaining
// points follow row-major lattice order and lie within OvershootFactor×radius.
// Coverage is heuristic, not guaranteed.
func Plan(center GeoPoint, radiusMeters float64, opts PlanOptions) []SamplePoint {
	opts = opts.withDefaults()
	zoom := ZoomLevel(radiusMeters)

	points := []SamplePoint{{Location: center, ZoomLevel: zoom}}
	if radiusMeters <= 0 {
		return points
	}

	spacing := radiusMeters * opts.SpacingFactor
	n := int(math.Ceil(2 * radiusMeters / spacing))
	limit := radiusMeters * opts.OvershootFactor

	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			if i == 0 && j == 0 {
				continue
			}
			p := center.Offset(float64(i)*spacing, float64(j)*spacing)
			if Distance(center, p) <= limit {
				points = append(points, SamplePoint{Location: p, ZoomLevel: zoom})
			}
		}
	}
	return points
}

// expandOffsets are degree offsets (lat, lon) for the fixed nine-point
// neighbourhood search: center, the four cardinal points, then the diagonals.
var expandOffsets = [][2]float64{
	{0, 0},
	{0.01, 0},
	{-0.01, 0},
	{0, 0.01},
	{0, -0.01},
	{0.007, 0.007},
	{-0.007, 0.007},
	{0.007, -0.007},
	{-0.007, -0.007},
}

// Expand returns the fixed nine-point neighbourhood around center at zoom.
func Expand(center GeoPoint, zoom int) []SamplePoint {
	points := make([]SamplePoint, 0, len(expandOffsets))
	for _, off := range expandOffsets {
		points = append(points, SamplePoint{
			Location:  GeoPoint{Latitude: center.Latitude + off[0], Longitude: center.Longitude + off[1]},
			ZoomLevel: zoom,
		})
	}
	return points
}

// Single returns the one-point plan used by plain searches.
func Single(center GeoPoint, zoom int) []SamplePoint {
	return []SamplePoint{{Location: center, ZoomLevel: zoom}}
}

package geo

// Zoom level bounds accepted by the place-search service.
const (
	MinZoom = 1
	MaxZoom = 21
)

// zoomThresholds maps inclusive radius upper bounds (meters) to zoom levels,
// ordered from smallest radius to largest.
var zoomThresholds = []struct {
	maxRadius float64
	zoom      int
}{
	{500, 16},
	{1000, 15},
	{2000, 14},
	{5000, 13},
	{10000, 12},
	{20000, 11},
}

// widestZoom is returned for any radius above the largest threshold.
const widestZoom = 10

// ZoomLevel maps a search radius to the map zoom level that controls the
// search service's query footprint. Smaller radii give higher zoom levels.
func ZoomLevel(radiusMeters float64) int {
	for _, t := range zoomThresholds {
		if radiusMeters <= t.maxRadius {
			return t.zoom
		}
	}
	return widestZoom
}

// ValidZoom reports whether zoom is inside the service's supported range.
func ValidZoom(zoom int) bool {
	return zoom >= MinZoom && zoom <= MaxZoom
}

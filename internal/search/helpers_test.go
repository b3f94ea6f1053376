package search

import (
	"fmt"
	"sync"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/pkg/serpapi"
)

var shibuya = geo.GeoPoint{Latitude: 35.658, Longitude: 139.7016}

// pageOf builds a page of n listings named prefix-0..n-1.
func pageOf(prefix string, n int, next string) *serpapi.MapsPage {
	results := make([]map[string]any, n)
	for i := range results {
		results[i] = map[string]any{
			"title":   fmt.Sprintf("%s-%d", prefix, i),
			"address": fmt.Sprintf("%d %s St", i, prefix),
			"phone":   fmt.Sprintf("03-0000-%04d", i),
		}
	}
	return &serpapi.MapsPage{LocalResults: results, Pagination: serpapi.Pagination{Next: next}}
}

func ll(p geo.SamplePoint) string {
	return geo.FormatLocation(p.Location, p.ZoomLevel)
}

type recordingProgress struct {
	mu       sync.Mutex
	started  []int
	pages    int
	finished int
	errs     int
}

func (r *recordingProgress) PointStarted(point, _ int, _ geo.SamplePoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, point)
}

func (r *recordingProgress) PageFetched(_, _, _, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages++
}

func (r *recordingProgress) PointFinished(_, _ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
	if err != nil {
		r.errs++
	}
}

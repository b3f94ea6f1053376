package search

import "github.com/sells-group/phone-finder/internal/geo"

// Progress observes a dispatch. Callbacks never affect control flow and may
// be called from several goroutines when the dispatcher runs in parallel.
type Progress interface {
	PointStarted(point, total int, sp geo.SamplePoint)
	PageFetched(point, page, records, added, aggregate int)
	PointFinished(point, aggregate int, err error)
}

// NopProgress ignores every callback.
type NopProgress struct{}

// PointStarted implements Progress.
func (NopProgress) PointStarted(int, int, geo.SamplePoint) {}

// PageFetched implements Progress.
func (NopProgress) PageFetched(int, int, int, int, int) {}

// PointFinished implements Progress.
func (NopProgress) PointFinished(int, int, error) {}

// Package search runs area searches: it plans sample points, dispatches
// paginated place-search queries for each, deduplicates the listings, and
// filters them against the requested radius.
package search

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/place"
	"github.com/sells-group/phone-finder/pkg/serpapi"
)

// Budgets bounds how much a dispatch may fetch.
type Budgets struct {
	// PagesPerPoint caps the pages fetched for one sample point, first page included.
	PagesPerPoint int
	// GlobalResults stops dispatching further points once the deduplicated
	// set holds this many records. Zero disables the check.
	GlobalResults int
	// PageSize is the nominal full-page size; a shorter page is the last one.
	PageSize int
}

func (b Budgets) withDefaults() Budgets {
	if b.PagesPerPoint <= 0 {
		b.PagesPerPoint = 6
	}
	if b.PageSize <= 0 {
		b.PageSize = serpapi.PageSize
	}
	return b
}

// DispatchStats summarizes one dispatch.
type DispatchStats struct {
	PointsPlanned int `json:"points_planned"`
	PointsQueried int `json:"points_queried"`
	PagesFetched  int `json:"pages_fetched"`
	PointErrors   int `json:"point_errors"`
	Aggregated    int `json:"aggregated"`
}

// Dispatcher issues place-search queries for a list of sample points.
type Dispatcher struct {
	client   serpapi.Client
	workers  int
	language string
	log      *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers fans sample points out over n concurrent workers. The global
// budget is then re-checked after each point completes, so the final count
// may overshoot it by up to n-1 points.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLanguage sets the result language (hl) of every query.
func WithLanguage(lang string) DispatcherOption {
	return func(d *Dispatcher) {
		d.language = lang
	}
}

// NewDispatcher creates a Dispatcher over client.
func NewDispatcher(client serpapi.Client, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		workers: 1,
		log:     zap.L().With(zap.String("component", "dispatcher")),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type counters struct {
	queried, pages, errs atomic.Int64
}

// Dispatch queries every point in order and merges each page into set. A
// failing request ends only its own point. The returned error is non-nil only
// when ctx is done; records merged before that remain in set.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, points []geo.SamplePoint, b Budgets, set *place.Set, progress Progress) (DispatchStats, error) {
	b = b.withDefaults()
	if progress == nil {
		progress = NopProgress{}
	}

	var c counters
	var err error
	if d.workers > 1 && len(points) > 1 {
		err = d.dispatchParallel(ctx, query, points, b, set, progress, &c)
	} else {
		err = d.dispatchSequential(ctx, query, points, b, set, progress, &c)
	}

	stats := DispatchStats{
		PointsPlanned: len(points),
		PointsQueried: int(c.queried.Load()),
		PagesFetched:  int(c.pages.Load()),
		PointErrors:   int(c.errs.Load()),
		Aggregated:    set.Len(),
	}
	d.log.Debug("dispatch finished",
		zap.String("query", query),
		zap.Int("points", stats.PointsQueried),
		zap.Int("pages", stats.PagesFetched),
		zap.Int("aggregated", stats.Aggregated),
	)
	return stats, err
}

func budgetReached(set *place.Set, b Budgets) bool {
	return b.GlobalResults > 0 && set.Len() >= b.GlobalResults
}

func (d *Dispatcher) dispatchSequential(ctx context.Context, query string, points []geo.SamplePoint, b Budgets, set *place.Set, progress Progress, c *counters) error {
	for i, pt := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.runPoint(ctx, query, i, len(points), pt, b, set, progress, c)
		if budgetReached(set, b) {
			d.log.Debug("global budget reached", zap.Int("after_point", i), zap.Int("aggregated", set.Len()))
			break
		}
	}
	return ctx.Err()
}

func (d *Dispatcher) dispatchParallel(ctx context.Context, query string, points []geo.SamplePoint, b Budgets, set *place.Set, progress Progress, c *counters) error {
	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, pt := range points {
		if ctx.Err() != nil || budgetReached(set, b) {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil || budgetReached(set, b) {
				return nil
			}
			d.runPoint(ctx, query, i, len(points), pt, b, set, progress, c)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// runPoint fetches up to b.PagesPerPoint pages for one point.
func (d *Dispatcher) runPoint(ctx context.Context, query string, idx, total int, pt geo.SamplePoint, b Budgets, set *place.Set, progress Progress, c *counters) {
	c.queried.Add(1)
	progress.PointStarted(idx, total, pt)

	page, err := d.client.MapsSearch(ctx, serpapi.MapsQuery{
		Query:    query,
		LL:       geo.FormatLocation(pt.Location, pt.ZoomLevel),
		Language: d.language,
	})
	if err != nil {
		c.errs.Add(1)
		d.log.Warn("point query failed", zap.Int("point", idx), zap.Error(err))
		progress.PointFinished(idx, set.Len(), err)
		return
	}

	var pageErr error
	for n := 1; n <= b.PagesPerPoint; n++ {
		places := page.Places()
		if len(places) == 0 {
			break
		}
		c.pages.Add(1)
		added := set.Merge(place.FromRawList(places))
		progress.PageFetched(idx, n, len(places), added, set.Len())

		if len(places) < b.PageSize || n == b.PagesPerPoint || ctx.Err() != nil {
			break
		}

		next, err := d.client.Next(ctx, page)
		if err != nil {
			if !errors.Is(err, serpapi.ErrNoMorePages) {
				c.errs.Add(1)
				pageErr = err
				d.log.Warn("next page failed", zap.Int("point", idx), zap.Int("page", n+1), zap.Error(err))
			}
			break
		}
		page = next
	}
	progress.PointFinished(idx, set.Len(), pageErr)
}

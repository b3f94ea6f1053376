package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/place"
)

// ErrInvalidRequest is returned for requests rejected before any network call.
var ErrInvalidRequest = eris.New("search: invalid request")

// Mode selects how sample points are chosen.
type Mode string

// Search modes.
const (
	// ModeRadius covers the circle around the center and filters by distance.
	ModeRadius Mode = "radius"
	// ModeExpand queries a fixed nine-point neighbourhood at the request zoom.
	ModeExpand Mode = "expand"
	// ModeSingle queries the center only at the request zoom.
	ModeSingle Mode = "single"
)

// ParseMode parses a mode name. The empty string is ModeRadius.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeRadius, nil
	case ModeRadius, ModeExpand, ModeSingle:
		return m, nil
	}
	return "", eris.Wrapf(ErrInvalidRequest, "unknown mode %q", s)
}

// DefaultZoom is used in expand and single mode when the request has none.
const DefaultZoom = 14

// Request is one area search.
type Request struct {
	Query        string       `json:"query"`
	Center       geo.GeoPoint `json:"center"`
	RadiusMeters float64      `json:"radius_meters,omitempty"`
	Mode         Mode         `json:"mode,omitempty"`
	Zoom         int          `json:"zoom,omitempty"`
	TakeoutOnly  bool         `json:"takeout_only,omitempty"`
	// MaxResults overrides the engine's result cap when positive.
	MaxResults int `json:"max_results,omitempty"`
}

// Stats summarizes an area search.
type Stats struct {
	DispatchStats
	OutsideRadius int `json:"outside_radius"`
	NoTakeout     int `json:"no_takeout"`
	Returned      int `json:"returned"`
}

// Result is the outcome of an area search.
type Result struct {
	Places []model.PlaceResult `json:"places"`
	Stats  Stats               `json:"stats"`
}

// Config tunes an Engine.
type Config struct {
	PagesPerPoint    int
	MaxResults       int
	BudgetMultiplier int
	PageSize         int
	MinRadius        float64
	MaxRadius        float64
	Plan             geo.PlanOptions
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		PagesPerPoint:    6,
		MaxResults:       100,
		BudgetMultiplier: 2,
		PageSize:         20,
		MinRadius:        100,
		MaxRadius:        50000,
	}
}

// Engine runs area searches.
type Engine struct {
	dispatcher *Dispatcher
	filter     *RadiusFilter
	cfg        Config
	log        *zap.Logger
}

// NewEngine creates an Engine. Zero Config fields fall back to DefaultConfig.
func NewEngine(d *Dispatcher, f *RadiusFilter, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.PagesPerPoint <= 0 {
		cfg.PagesPerPoint = def.PagesPerPoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.BudgetMultiplier <= 0 {
		cfg.BudgetMultiplier = def.BudgetMultiplier
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MinRadius <= 0 {
		cfg.MinRadius = def.MinRadius
	}
	if cfg.MaxRadius <= 0 {
		cfg.MaxRadius = def.MaxRadius
	}
	if f == nil {
		f = NewRadiusFilter(nil, 0)
	}
	return &Engine{
		dispatcher: d,
		filter:     f,
		cfg:        cfg,
		log:        zap.L().With(zap.String("component", "search")),
	}
}

// Validate checks req without touching the network and fills in defaults.
func (e *Engine) Validate(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return eris.Wrap(ErrInvalidRequest, "query is required")
	}
	if err := req.Center.Validate(); err != nil {
		return eris.Wrap(ErrInvalidRequest, err.Error())
	}
	if req.Mode == "" {
		req.Mode = ModeRadius
	}
	switch req.Mode {
	case ModeRadius:
		if req.RadiusMeters < e.cfg.MinRadius || req.RadiusMeters > e.cfg.MaxRadius {
			return eris.Wrapf(ErrInvalidRequest, "radius %.0f m outside %.0f-%.0f m",
				req.RadiusMeters, e.cfg.MinRadius, e.cfg.MaxRadius)
		}
	case ModeExpand, ModeSingle:
		if req.Zoom == 0 {
			req.Zoom = DefaultZoom
		}
		if !geo.ValidZoom(req.Zoom) {
			return eris.Wrapf(ErrInvalidRequest, "zoom %d outside %d-%d", req.Zoom, geo.MinZoom, geo.MaxZoom)
		}
	default:
		return eris.Wrapf(ErrInvalidRequest, "unknown mode %q", req.Mode)
	}
	if req.MaxResults < 0 {
		return eris.Wrap(ErrInvalidRequest, "max_results must not be negative")
	}
	return nil
}

func (e *Engine) points(req Request) []geo.SamplePoint {
	switch req.Mode {
	case ModeExpand:
		return geo.Expand(req.Center, req.Zoom)
	case ModeSingle:
		return geo.Single(req.Center, req.Zoom)
	default:
		return geo.Plan(req.Center, req.RadiusMeters, e.cfg.Plan)
	}
}

// SearchArea runs req end to end. Invalid requests fail with
// ErrInvalidRequest before any query is sent. Failing points degrade the
// result rather than failing it; an error is returned only for invalid
// input or cancellation, in which case the partial result is still returned.
func (e *Engine) SearchArea(ctx context.Context, req Request, progress Progress) (*Result, error) {
	if err := e.Validate(&req); err != nil {
		return nil, err
	}

	maxResults := e.cfg.MaxResults
	if req.MaxResults > 0 {
		maxResults = req.MaxResults
	}
	points := e.points(req)
	e.log.Info("area search started",
		zap.String("query", req.Query),
		zap.String("mode", string(req.Mode)),
		zap.Float64("radius_m", req.RadiusMeters),
		zap.Int("points", len(points)),
	)

	set := place.NewSet()
	ds, dispatchErr := e.dispatcher.Dispatch(ctx, req.Query, points, Budgets{
		PagesPerPoint: e.cfg.PagesPerPoint,
		GlobalResults: maxResults * e.cfg.BudgetMultiplier,
		PageSize:      e.cfg.PageSize,
	}, set, progress)

	res := &Result{Stats: Stats{DispatchStats: ds}}
	for _, rec := range set.Records() {
		if len(res.Places) >= maxResults {
			break
		}
		if ctx.Err() != nil {
			break
		}
		out := model.PlaceResult{PlaceRecord: rec}
		if req.Mode == ModeRadius {
			d, ok := e.filter.Keep(ctx, &out.PlaceRecord, req.Center, req.RadiusMeters)
			if !ok {
				res.Stats.OutsideRadius++
				continue
			}
			out.DistanceMeters = model.Float64Ptr(d)
		}
		if req.TakeoutOnly && !place.OffersTakeout(out.PlaceRecord) {
			res.Stats.NoTakeout++
			continue
		}
		res.Places = append(res.Places, out)
	}
	res.Stats.Returned = len(res.Places)

	e.log.Info("area search finished",
		zap.String("query", req.Query),
		zap.Int("aggregated", ds.Aggregated),
		zap.Int("returned", res.Stats.Returned),
		zap.Int("outside_radius", res.Stats.OutsideRadius),
	)

	if dispatchErr != nil {
		return res, eris.Wrap(dispatchErr, "search: dispatch interrupted")
	}
	if err := ctx.Err(); err != nil {
		return res, eris.Wrap(err, "search: filtering interrupted")
	}
	return res, nil
}

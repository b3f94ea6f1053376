package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/place"
	"github.com/sells-group/phone-finder/internal/search"
	"github.com/sells-group/phone-finder/pkg/serpapi"
)

// DefaultFallbackTemplate builds the web query used when the maps search
// finds nothing. %s is the business name.
const DefaultFallbackTemplate = "%s official phone number"

// Area optionally biases a lookup toward a location.
type Area struct {
	Center geo.GeoPoint `json:"center"`
	// Zoom sets the viewport zoom. Zero derives it from RadiusMeters, or
	// uses search.DefaultZoom when there is no radius.
	Zoom int `json:"zoom,omitempty"`
	// RadiusMeters, when positive, rejects matches farther than this from Center.
	RadiusMeters float64 `json:"radius_meters,omitempty"`
}

func (a *Area) zoom() int {
	switch {
	case a.Zoom > 0:
		return a.Zoom
	case a.RadiusMeters > 0:
		return geo.ZoomLevel(a.RadiusMeters)
	default:
		return search.DefaultZoom
	}
}

// Query is one name to resolve.
type Query struct {
	Name string `json:"name"`
	Area *Area  `json:"area,omitempty"`
}

// Config tunes a Resolver.
type Config struct {
	BranchQualifiers []string
	FallbackTemplate string
	FallbackResults  int
	Language         string
}

// Resolver resolves business names to a single entity.
type Resolver struct {
	client serpapi.Client
	filter *search.RadiusFilter
	cfg    Config
	log    *zap.Logger
}

// NewResolver creates a Resolver. filter is used for the post-hoc radius
// check and may be nil, in which case matches without coordinates fail it.
func NewResolver(client serpapi.Client, filter *search.RadiusFilter, cfg Config) *Resolver {
	if cfg.BranchQualifiers == nil {
		cfg.BranchQualifiers = DefaultBranchQualifiers
	}
	if cfg.FallbackTemplate == "" || !strings.Contains(cfg.FallbackTemplate, "%s") {
		cfg.FallbackTemplate = DefaultFallbackTemplate
	}
	if cfg.FallbackResults <= 0 {
		cfg.FallbackResults = 10
	}
	if filter == nil {
		filter = search.NewRadiusFilter(nil, 0)
	}
	return &Resolver{
		client: client,
		filter: filter,
		cfg:    cfg,
		log:    zap.L().With(zap.String("component", "resolver")),
	}
}

// Resolve looks up q.Name. It never fails: problems are reported through
// the entity's ErrorReason with every data field empty and a Low tier.
func (r *Resolver) Resolve(ctx context.Context, q Query) model.ResolvedEntity {
	ent := model.ResolvedEntity{QueryName: q.Name}
	name := strings.TrimSpace(q.Name)
	if name == "" {
		ent.ClearFields(model.ReasonEmptyName)
		return ent
	}

	winner, found := r.primary(ctx, name, q.Area)
	if found && winner.HasPhone() {
		fill(&ent, winner)
	} else if phone := r.fallback(ctx, name); phone != "" {
		ent.Phone = phone
	} else {
		ent.ClearFields(missReason(ctx, found))
		return ent
	}

	if q.Area != nil && q.Area.RadiusMeters > 0 {
		rec := model.PlaceRecord{Name: ent.ResolvedName, Address: ent.Address, Coordinates: ent.Coordinates}
		d, ok := r.filter.Keep(ctx, &rec, q.Area.Center, q.Area.RadiusMeters)
		if !ok {
			ent.ClearFields(model.ReasonOutsideRadius)
			return ent
		}
		ent.Coordinates = rec.Coordinates
		ent.DistanceMeters = model.Float64Ptr(d)
	}

	ent.ConfidenceTier = ent.Tier()
	return ent
}

// primary runs the maps search. The area only sets the viewport; the query
// text is always the bare name.
func (r *Resolver) primary(ctx context.Context, name string, area *Area) (model.PlaceRecord, bool) {
	mq := serpapi.MapsQuery{Query: name, Language: r.cfg.Language}
	if area != nil {
		mq.LL = geo.FormatLocation(area.Center, area.zoom())
	}

	page, err := r.client.MapsSearch(ctx, mq)
	if err != nil {
		r.log.Warn("maps lookup failed, using fallback", zap.String("name", name), zap.Error(err))
		return model.PlaceRecord{}, false
	}

	var cands []model.PlaceRecord
	for _, rec := range place.FromRawList(page.Places()) {
		if rec.Name != "" || rec.HasPhone() || rec.HasAddress() {
			cands = append(cands, rec)
		}
	}
	best := SelectBest(cands, r.cfg.BranchQualifiers)
	if best < 0 {
		return model.PlaceRecord{}, false
	}
	r.log.Debug("candidate selected",
		zap.String("name", name),
		zap.Int("candidates", len(cands)),
		zap.String("winner", cands[best].Name),
		zap.Int("score", Score(cands[best], r.cfg.BranchQualifiers)),
	)
	return cands[best], true
}

// fallback mines web snippets for a phone number.
func (r *Resolver) fallback(ctx context.Context, name string) string {
	if ctx.Err() != nil {
		return ""
	}
	page, err := r.client.WebSearch(ctx, serpapi.WebQuery{
		Query:    fmt.Sprintf(r.cfg.FallbackTemplate, name),
		Num:      r.cfg.FallbackResults,
		Language: r.cfg.Language,
	})
	if err != nil {
		r.log.Warn("web fallback failed", zap.String("name", name), zap.Error(err))
		return ""
	}
	return ExtractPhone(page.Snippets())
}

// missReason explains why neither path produced a phone number.
func missReason(ctx context.Context, found bool) string {
	switch {
	case ctx.Err() != nil:
		return model.ReasonLookupCanceled
	case found:
		return model.ReasonPhoneNotFound
	default:
		return model.ReasonNotFound
	}
}

func fill(ent *model.ResolvedEntity, rec model.PlaceRecord) {
	ent.ResolvedName = rec.Name
	ent.Phone = rec.Phone
	ent.Address = rec.Address
	ent.Coordinates = rec.Coordinates
	ent.Rating = rec.Rating
	ent.Reviews = rec.Reviews
}

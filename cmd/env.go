package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/config"
	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/resilience"
	"github.com/sells-group/phone-finder/internal/resolve"
	"github.com/sells-group/phone-finder/internal/search"
	"github.com/sells-group/phone-finder/internal/store"
	"github.com/sells-group/phone-finder/pkg/geocode"
	"github.com/sells-group/phone-finder/pkg/serpapi"
)

// appEnv holds the clients and services shared by the search, resolve, and
// serve commands.
type appEnv struct {
	Geocoder geocode.Client // cached, for place-name centers
	Engine   *search.Engine
	Resolver *resolve.Resolver
	Store    store.Store // nil unless persistence is enabled
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the configuration for mode and builds the environment.
// The store is opened only when withStore is true.
func initEnv(ctx context.Context, mode string, withStore bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if withStore {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return nil, err
		}
	}

	serp := newSerpClient(cfg.SerpAPI)
	lookup := newGeocoder(cfg.Geocode)
	filter := search.NewRadiusFilter(lookup, time.Duration(cfg.Geocode.FilterTimeoutSecs)*time.Second)

	env := &appEnv{
		Geocoder: newCachedGeocoder(lookup, cfg.Geocode),
		Engine:   newEngine(serp, filter, cfg.Search, cfg.SerpAPI.Language),
		Resolver: newResolver(serp, filter, cfg.Resolve, cfg.SerpAPI.Language),
	}

	if withStore {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open store")
		}
		env.Store = st
	}

	zap.L().Debug("environment ready",
		zap.String("mode", mode),
		zap.String("geocoder", cfg.Geocode.Provider),
		zap.Bool("store", withStore),
	)
	return env, nil
}

func newSerpClient(c config.SerpAPIConfig) serpapi.Client {
	opts := []serpapi.Option{
		serpapi.WithTimeout(time.Duration(c.TimeoutSecs) * time.Second),
		serpapi.WithRetry(resilience.DefaultPolicy().WithAttempts(c.Retries+1)),
	}
	if c.BaseURL != "" {
		opts = append(opts, serpapi.WithBaseURL(c.BaseURL))
	}
	if c.RateLimit > 0 {
		opts = append(opts, serpapi.WithRateLimit(c.RateLimit))
	}
	return serpapi.NewClient(c.Key, opts...)
}

// newGeocoder builds the uncached provider chain named by c.Provider.
func newGeocoder(c config.GeocodeConfig) geocode.Client {
	hc := &http.Client{Timeout: time.Duration(c.TimeoutSecs) * time.Second}

	nominatim := func() geocode.Provider {
		opts := []geocode.NominatimOption{
			geocode.WithNominatimHTTPClient(hc),
			geocode.WithUserAgent(c.UserAgent),
		}
		if c.NominatimURL != "" {
			opts = append(opts, geocode.WithNominatimURL(c.NominatimURL))
		}
		return geocode.NewNominatimProvider(opts...)
	}
	google := func() geocode.Provider {
		return geocode.NewGoogleProvider(c.GoogleKey, geocode.WithGoogleHTTPClient(hc))
	}

	var providers []geocode.Provider
	switch c.Provider {
	case "google":
		providers = []geocode.Provider{google()}
	case "nominatim":
		providers = []geocode.Provider{nominatim()}
	default:
		providers = []geocode.Provider{nominatim()}
		if c.GoogleKey != "" {
			providers = append(providers, google())
		}
	}
	return geocode.NewCascade(providers)
}

func newCachedGeocoder(next geocode.Client, c config.GeocodeConfig) *geocode.CachedClient {
	return geocode.NewCachedClient(next, time.Duration(c.CacheTTLMins)*time.Minute, c.CacheMaxEntries)
}

func newEngine(client serpapi.Client, filter *search.RadiusFilter, c config.SearchConfig, lang string) *search.Engine {
	d := search.NewDispatcher(client, search.WithWorkers(c.Workers), search.WithLanguage(lang))
	return search.NewEngine(d, filter, search.Config{
		PagesPerPoint:    c.PagesPerPoint,
		MaxResults:       c.MaxResults,
		BudgetMultiplier: c.BudgetMultiplier,
		PageSize:         c.PageSize,
		MinRadius:        c.MinRadius,
		MaxRadius:        c.MaxRadius,
		Plan: geo.PlanOptions{
			SpacingFactor:   c.SpacingFactor,
			OvershootFactor: c.OvershootFactor,
		},
	})
}

func newResolver(client serpapi.Client, filter *search.RadiusFilter, c config.ResolveConfig, lang string) *resolve.Resolver {
	return resolve.NewResolver(client, filter, resolve.Config{
		BranchQualifiers: c.BranchQualifiers,
		FallbackTemplate: c.FallbackQueryTemplate,
		FallbackResults:  c.FallbackResults,
		Language:         lang,
	})
}

// resolveDelay converts the configured inter-lookup delay.
func resolveDelay(c config.ResolveConfig) time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/config"
	"github.com/sells-group/phone-finder/internal/search"
	"github.com/sells-group/phone-finder/internal/sheet"
)

var searchFlags struct {
	query      string
	place      string
	location   string
	radius     float64
	mode       string
	zoom       int
	takeout    bool
	maxResults int
	output     string
	format     string
	save       bool
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find every business matching a query within an area",
	Long: `Covers a circular area with sample points, queries each point for the
search term, de-duplicates the listings, and keeps those inside the radius.

The center is given as --lat/--lon, a place name (--place), or a location
string (--location "@35.658,139.7016,15z").`,
	Example: `  phone-finder search --query ramen --place "Shibuya, Tokyo" --radius 800
  phone-finder search --query cafe --lat 40.74 --lon -74.00 --radius 500 --output cafes.csv
  phone-finder search --query sushi --location "@35.66,139.70,16z" --mode expand --takeout`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		save := searchFlags.save || cfg.Store.Enabled
		env, err := initEnv(ctx, config.ModeSearch, save)
		if err != nil {
			return err
		}
		defer env.Close()

		req, err := buildSearchRequest(ctx, cmd, env)
		if err != nil {
			return err
		}

		res, runErr := env.Engine.SearchArea(ctx, req, newLogProgress())
		if res == nil {
			return runErr
		}

		if save {
			runID, err := saveSearch(context.WithoutCancel(ctx), env.Store, req, res, runErr)
			if err != nil {
				zap.L().Error("save search run failed", zap.Error(err))
			} else {
				fmt.Fprintf(os.Stderr, "Saved run %s\n", runID)
			}
		}

		if err := writeResults(searchFlags.output, searchFlags.format, func(w io.Writer, f sheet.Format) error {
			return sheet.WritePlaces(w, f, res.Places, sheetOptions())
		}); err != nil {
			return err
		}

		st := res.Stats
		fmt.Fprintf(os.Stderr, "%d places (%d points, %d pages, %d aggregated, %d outside radius, %d point errors)\n",
			st.Returned, st.PointsQueried, st.PagesFetched, st.Aggregated, st.OutsideRadius, st.PointErrors)

		if runErr != nil {
			return eris.Wrap(runErr, "search incomplete")
		}
		return nil
	},
}

// buildSearchRequest assembles a request from flags, geocoding --place when given.
func buildSearchRequest(ctx context.Context, cmd *cobra.Command, env *appEnv) (search.Request, error) {
	mode, err := search.ParseMode(searchFlags.mode)
	if err != nil {
		return search.Request{}, err
	}

	in := centerInput{Place: searchFlags.place, Location: searchFlags.location}
	if cmd.Flags().Changed("lat") {
		v, _ := cmd.Flags().GetFloat64("lat")
		in.Lat = &v
	}
	if cmd.Flags().Changed("lon") {
		v, _ := cmd.Flags().GetFloat64("lon")
		in.Lon = &v
	}
	center, locZoom, err := resolveCenter(ctx, env.Geocoder, in)
	if err != nil {
		return search.Request{}, err
	}

	zoom := searchFlags.zoom
	if zoom == 0 {
		zoom = locZoom
	}

	return search.Request{
		Query:        searchFlags.query,
		Center:       center,
		RadiusMeters: searchFlags.radius,
		Mode:         mode,
		Zoom:         zoom,
		TakeoutOnly:  searchFlags.takeout,
		MaxResults:   searchFlags.maxResults,
	}, nil
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchFlags.query, "query", "q", "", "search term (required)")
	f.Float64("lat", 0, "center latitude")
	f.Float64("lon", 0, "center longitude")
	f.StringVar(&searchFlags.place, "place", "", "center place name to geocode")
	f.StringVar(&searchFlags.location, "location", "", `center as "@lat,lon[,zoomz]"`)
	f.Float64VarP(&searchFlags.radius, "radius", "r", 1000, "radius in meters (radius mode)")
	f.StringVar(&searchFlags.mode, "mode", string(search.ModeRadius), "coverage mode: radius, expand, or single")
	f.IntVar(&searchFlags.zoom, "zoom", 0, "map zoom for expand/single mode (1-21)")
	f.BoolVar(&searchFlags.takeout, "takeout", false, "keep only places offering takeout")
	f.IntVar(&searchFlags.maxResults, "max-results", 0, "cap on returned places (default from config)")
	f.StringVarP(&searchFlags.output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&searchFlags.format, "format", "", "output format: csv, xlsx, json, yaml, geojson (default from extension, else json)")
	f.BoolVar(&searchFlags.save, "save", false, "record the run in the store")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

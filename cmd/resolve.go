package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/config"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/resolve"
	"github.com/sells-group/phone-finder/internal/sheet"
)

var resolveFlags struct {
	input    string
	column   string
	sheet    string
	header   bool
	place    string
	location string
	radius   float64
	zoom     int
	workers  int
	output   string
	format   string
	save     bool
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [name...]",
	Short: "Resolve business names to phone numbers",
	Long: `Looks up each name, picks the best-matching listing, and falls back to a
web search for the phone number when the listing has none. Names come from
arguments or from a CSV/XLSX file (--input).

An optional area (--lat/--lon, --place, or --location) biases lookups toward
that location; with --radius, matches farther away are rejected.`,
	Example: `  phone-finder resolve "Ramen Ichi Shibuya" "Sushi Dai Tsukiji"
  phone-finder resolve --input stores.xlsx --column "Store Name" --output stores-phones.xlsx
  phone-finder resolve --input names.csv --place "Osaka" --radius 5000 --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		names, err := collectNames(args)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return eris.New("no names to resolve: pass names as arguments or use --input")
		}

		save := resolveFlags.save || cfg.Store.Enabled
		env, err := initEnv(ctx, config.ModeResolve, save)
		if err != nil {
			return err
		}
		defer env.Close()

		area, err := buildArea(ctx, cmd, env)
		if err != nil {
			return err
		}

		workers := resolveFlags.workers
		if workers <= 0 {
			workers = cfg.Resolve.Workers
		}
		batch := resolve.NewBatch(env.Resolver, workers, resolveDelay(cfg.Resolve))
		ents, runErr := batch.Run(ctx, queriesFor(names, area), logResolveProgress())

		if save {
			runID, err := saveResolve(context.WithoutCancel(ctx), env.Store, resolveParams{Names: names, Area: area}, ents, runErr)
			if err != nil {
				zap.L().Error("save resolve run failed", zap.Error(err))
			} else {
				fmt.Fprintf(os.Stderr, "Saved run %s\n", runID)
			}
		}

		if err := writeResults(resolveFlags.output, resolveFlags.format, func(w io.Writer, f sheet.Format) error {
			return sheet.WriteEntities(w, f, ents, sheetOptions())
		}); err != nil {
			return err
		}

		s := summarizeEntities(ents)
		fmt.Fprintf(os.Stderr, "%d names: %d very high, %d high, %d mid, %d low (%d unresolved)\n",
			s.Total, s.ByTier[model.TierVeryHigh.String()], s.ByTier[model.TierHigh.String()],
			s.ByTier[model.TierMid.String()], s.ByTier[model.TierLow.String()], s.Unresolved)

		if runErr != nil {
			return eris.Wrap(runErr, "resolve incomplete")
		}
		return nil
	},
}

// collectNames merges positional names with names read from --input.
func collectNames(args []string) ([]string, error) {
	var names []string
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if resolveFlags.input != "" {
		fromFile, err := sheet.ReadNames(resolveFlags.input, sheet.NameOptions{
			Column:    resolveFlags.column,
			HasHeader: resolveFlags.header,
			SheetName: resolveFlags.sheet,
		})
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}
	return names, nil
}

// buildArea returns nil when no center flag was given.
func buildArea(ctx context.Context, cmd *cobra.Command, env *appEnv) (*resolve.Area, error) {
	in := centerInput{Place: resolveFlags.place, Location: resolveFlags.location}
	if cmd.Flags().Changed("lat") {
		v, _ := cmd.Flags().GetFloat64("lat")
		in.Lat = &v
	}
	if cmd.Flags().Changed("lon") {
		v, _ := cmd.Flags().GetFloat64("lon")
		in.Lon = &v
	}
	if in.given() == 0 {
		if resolveFlags.radius > 0 {
			return nil, eris.New("--radius needs a center (lat/lon, place, or location)")
		}
		return nil, nil
	}

	center, locZoom, err := resolveCenter(ctx, env.Geocoder, in)
	if err != nil {
		return nil, err
	}
	zoom := resolveFlags.zoom
	if zoom == 0 {
		zoom = locZoom
	}
	return &resolve.Area{Center: center, Zoom: zoom, RadiusMeters: resolveFlags.radius}, nil
}

func queriesFor(names []string, area *resolve.Area) []resolve.Query {
	qs := make([]resolve.Query, len(names))
	for i, n := range names {
		qs[i] = resolve.Query{Name: n, Area: area}
	}
	return qs
}

func init() {
	f := resolveCmd.Flags()
	f.StringVarP(&resolveFlags.input, "input", "i", "", "CSV or XLSX file of names")
	f.StringVar(&resolveFlags.column, "column", "", "header of the name column in --input (default first column)")
	f.StringVar(&resolveFlags.sheet, "sheet", "", "XLSX worksheet name (default first sheet)")
	f.BoolVar(&resolveFlags.header, "header", false, "skip the first row of --input")
	f.Float64("lat", 0, "area center latitude")
	f.Float64("lon", 0, "area center longitude")
	f.StringVar(&resolveFlags.place, "place", "", "area center place name to geocode")
	f.StringVar(&resolveFlags.location, "location", "", `area center as "@lat,lon[,zoomz]"`)
	f.Float64VarP(&resolveFlags.radius, "radius", "r", 0, "reject matches farther than this many meters from the center")
	f.IntVar(&resolveFlags.zoom, "zoom", 0, "viewport zoom for lookups (default derived from radius)")
	f.IntVar(&resolveFlags.workers, "workers", 0, "concurrent lookups (default from config)")
	f.StringVarP(&resolveFlags.output, "output", "o", "", "output file (default stdout)")
	f.StringVar(&resolveFlags.format, "format", "", "output format: csv, xlsx, json, yaml, geojson (default from extension, else json)")
	f.BoolVar(&resolveFlags.save, "save", false, "record the run in the store")
	rootCmd.AddCommand(resolveCmd)
}

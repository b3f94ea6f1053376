package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/phone-finder/internal/config"
	"github.com/sells-group/phone-finder/pkg/geocode"
)

var geocodeFlags struct {
	json        bool
	concurrency int
}

// geocodeRow is one line of geocode output.
type geocodeRow struct {
	Query  string          `json:"query"`
	Result *geocode.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode <place>...",
	Short: "Geocode place names or addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(config.ModeGeocode); err != nil {
			return err
		}
		gc := newCachedGeocoder(newGeocoder(cfg.Geocode), cfg.Geocode)

		rows, err := geocodeAll(ctx, gc, args, geocodeFlags.concurrency)
		if err != nil {
			return err
		}

		if geocodeFlags.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		formatGeocodeRows(os.Stdout, rows)
		return nil
	},
}

// geocodeAll geocodes queries concurrently and returns rows in input order.
// Per-query failures are reported in the row; only cancellation fails the call.
func geocodeAll(ctx context.Context, gc geocode.Client, queries []string, concurrency int) ([]geocodeRow, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	rows := make([]geocodeRow, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range queries {
		g.Go(func() error {
			rows[i].Query = q
			res, err := gc.Geocode(gctx, q)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("geocode failed", zap.String("query", q), zap.Error(err))
				rows[i].Error = err.Error()
				return nil
			}
			rows[i].Result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rows, eris.Wrap(err, "geocode interrupted")
	}
	return rows, nil
}

func formatGeocodeRows(out io.Writer, rows []geocodeRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "QUERY\tLAT\tLON\tSOURCE\tADDRESS")
	for _, r := range rows {
		switch {
		case r.Error != "":
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\terror: %s\n", r.Query, r.Error)
		case r.Result == nil || !r.Result.Matched:
			_, _ = fmt.Fprintf(w, "%s\t-\t-\t-\tnot found\n", r.Query)
		default:
			_, _ = fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%s\t%s\n",
				r.Query, r.Result.Latitude, r.Result.Longitude, r.Result.Source, r.Result.Address)
		}
	}
	_ = w.Flush()
}

func init() {
	geocodeCmd.Flags().BoolVar(&geocodeFlags.json, "json", false, "print JSON instead of a table")
	geocodeCmd.Flags().IntVar(&geocodeFlags.concurrency, "concurrency", 2, "concurrent lookups")
	rootCmd.AddCommand(geocodeCmd)
}
